// pgw-probe sends one BCD-encoded IMSI to the gateway's datagram port
// and prints the reply.
//
// Usage: pgw-probe [flags] IMSI
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hsdfat8/pgw-gw/bcd"
	"github.com/hsdfat8/pgw-gw/pkg/logger"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9000", "Gateway UDP address (host:port)")
	timeout := flag.Duration("timeout", 2*time.Second, "Reply timeout")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger.SetLevel(*logLevel)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: pgw-probe [flags] IMSI")
		os.Exit(2)
	}
	imsi := flag.Arg(0)

	payload, err := bcd.Encode(imsi)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid IMSI: %v\n", err)
		os.Exit(3)
	}

	conn, err := net.Dial("udp4", *serverAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *serverAddr, err)
		os.Exit(4)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		os.Exit(5)
	}
	logger.Log.Infow("Sent IMSI", "imsi", imsi, "bytes", len(payload), "server", *serverAddr)

	if err := conn.SetReadDeadline(time.Now().Add(*timeout)); err != nil {
		logger.Log.Warnw("Failed to set read deadline", "error", err)
	}

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			fmt.Fprintln(os.Stderr, "timeout")
			os.Exit(6)
		}
		fmt.Fprintf(os.Stderr, "receive: %v\n", err)
		os.Exit(7)
	}

	fmt.Println(string(buf[:n]))
}
