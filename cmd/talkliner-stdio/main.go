package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/config"
	"github.com/rexliu/talkliner/pkg/ipc"
)

func main() {
	profile := flag.String("profile", "./_dev_profile", "Profile directory")
	socket := flag.String("socket", "", "Override socket path")
	flag.Parse()

	socketPath := *socket
	if socketPath == "" {
		cfg, err := config.LoadProfile(*profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bridge: load config: %v\n", err)
			os.Exit(1)
		}
		socketPath = config.ResolvePath(*profile, cfg.IPC.SocketPath)
	}
	conn, err := ipc.Dial(context.Background(), socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := relay(os.Stdin, os.Stdout, conn); err != nil {
		fmt.Fprintf(os.Stderr, "bridge exiting: %v\n", err)
		os.Exit(1)
	}
}

// relay forwards newline-delimited requests from in to the daemon and writes
// one response line per request to out. It returns nil at end of input.
// Stream subscriptions are refused since the connection carries one
// response per request.
func relay(in io.Reader, out io.Writer, conn net.Conn) error {
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	defer writer.Flush()
	enc := json.NewEncoder(writer)

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if werr := relayLine(line, enc, conn); werr != nil {
				return werr
			}
			if ferr := writer.Flush(); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func relayLine(line []byte, enc *json.Encoder, conn net.Conn) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	var req ipc.Request
	if err := json.Unmarshal(line, &req); err != nil {
		return enc.Encode(ipc.Response{Error: channel.Errorf(channel.CodeInvalidRequest, "invalid json", nil)})
	}
	if req.Channel == "" && req.Method == ipc.MethodSubscribeEvents {
		return enc.Encode(ipc.Response{
			ID:    req.ID,
			Error: channel.Errorf(channel.CodeInvalidRequest, "event streams are not available over the stdio bridge", nil),
		})
	}
	resp, err := ipc.RoundTrip(conn, req)
	if err != nil {
		return err
	}
	return enc.Encode(resp)
}
