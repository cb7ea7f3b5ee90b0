// Command battleshipd runs the Battleship match-making and arbitration
// server, following the same flag/configuration shape as the teacher's
// own cmd/server entry point: a -conf file, a -dump-config escape hatch,
// then handing control to the accept loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"battleship"
	"battleship/conf"
	"battleship/directory"
	"battleship/session"
)

const defconf = "battleshipd.toml"

func main() {
	var (
		confFile = flag.String("conf", defconf, "Name of configuration file")
		dumpConf = flag.Bool("dump-config", false, "Dump default configuration")
	)
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(flag.CommandLine.Output(), "Too many arguments passed to %s.\nUsage:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	config, err := conf.Open(*confFile)
	if err != nil {
		if !os.IsNotExist(err) || *confFile != defconf {
			log.Fatal(err)
		}
		config = conf.Default()
	}
	config.ApplyDebug()

	if *dumpConf {
		if err := config.Dump(os.Stdout); err != nil {
			log.Fatalln("failed to dump configuration:", err)
		}
		os.Exit(0)
	}

	if err := os.Remove(config.SocketPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("removing stale socket %s: %v", config.SocketPath, err)
	}

	listener, err := net.Listen("unix", config.SocketPath)
	if err != nil {
		log.Fatal(err)
	}
	defer listener.Close()
	defer os.Remove(config.SocketPath)

	log.Printf("listening on %s", config.SocketPath)

	dir := directory.New(config.SaltLength)
	ctx := context.Background()
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Print(err)
			continue
		}
		go serve(ctx, dir, conn)
	}
}

func serve(ctx context.Context, dir *directory.Directory, conn net.Conn) {
	defer conn.Close()
	battleship.Debug.Printf("accepted connection from %s", conn.RemoteAddr())
	s := session.New(dir)
	s.Run(ctx, conn, conn)
	battleship.Debug.Printf("closed connection from %s", conn.RemoteAddr())
}
