package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"contactdb/pkg/common"
	"contactdb/pkg/protocol"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	var httpAddr, tcpAddr string
	var n int

	cmd := &cobra.Command{
		Use:   "contactdb-bench",
		Short: "Compare contact inserts over HTTP JSON and the binary TCP protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "contactdb Protocol Benchmark (N=%s)\n", humanize.Comma(int64(n)))
			fmt.Fprintf(out, "  HTTP=%s  TCP=%s\n", httpAddr, tcpAddr)
			fmt.Fprintln(out, "---------------------------------------------------")

			fmt.Fprintln(out, ">> Starting HTTP Benchmark (JSON over HTTP 1.1)...")
			httpDuration, err := runHTTPBenchmark(httpAddr, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "   HTTP Time: %v | QPS: %.0f\n\n", httpDuration, float64(n)/httpDuration.Seconds())

			fmt.Fprintln(out, ">> Starting TCP Benchmark (Binary Protocol)...")
			tcpDuration, err := runTCPBenchmark(tcpAddr, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "   TCP  Time: %v | QPS: %.0f\n", tcpDuration, float64(n)/tcpDuration.Seconds())

			fmt.Fprintln(out, "---------------------------------------------------")
			speedup := httpDuration.Seconds() / tcpDuration.Seconds()
			fmt.Fprintf(out, "Conclusion: TCP is %.2fx the speed of HTTP\n", speedup)
			return nil
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "http://localhost:8080", "HTTP API base URL")
	cmd.Flags().StringVar(&tcpAddr, "tcp", "localhost:9090", "TCP server address")
	cmd.Flags().IntVar(&n, "n", 5000, "number of contacts per run")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// benchContact gives every run its own names; the index rejects duplicates.
func benchContact(run string, i int) common.ContactInput {
	return common.ContactInput{
		Name:  fmt.Sprintf("bench-%s-%06d", run, i),
		Phone: fmt.Sprintf("555-%04d", i%10000),
		Email: fmt.Sprintf("bench%d@example.com", i),
	}
}

func runHTTPBenchmark(httpAddr string, n int) (time.Duration, error) {
	run := fmt.Sprintf("http-%d", time.Now().UnixNano())
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 100,
		},
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		jsonData, err := json.Marshal(benchContact(run, i))
		if err != nil {
			return 0, err
		}

		resp, err := client.Post(httpAddr+"/contacts", "application/json", bytes.NewReader(jsonData))
		if err != nil {
			return 0, fmt.Errorf("HTTP request failed: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return 0, fmt.Errorf("HTTP request failed: %s", resp.Status)
		}
	}
	return time.Since(start), nil
}

func runTCPBenchmark(addr string, n int) (time.Duration, error) {
	run := fmt.Sprintf("tcp-%d", time.Now().UnixNano())
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("TCP connect failed: %w", err)
	}
	defer conn.Close()

	start := time.Now()
	for i := 0; i < n; i++ {
		val, err := json.Marshal(benchContact(run, i))
		if err != nil {
			return 0, err
		}
		if err := protocol.Encode(conn, protocol.OpPut, nil, val); err != nil {
			return 0, fmt.Errorf("TCP write failed: %w", err)
		}
		resp, err := protocol.Decode(conn)
		if err != nil {
			return 0, fmt.Errorf("TCP read failed: %w", err)
		}
		if resp.Op == protocol.RespErr {
			return 0, fmt.Errorf("TCP request failed: %s", resp.Value)
		}
	}
	return time.Since(start), nil
}
