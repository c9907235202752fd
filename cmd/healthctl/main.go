// Command healthctl queries a running gamehealthd and prints the result.
//
//	healthctl [-addr http://localhost:8080] [-subject id] [-timeout 30s] check|status|summary|logs
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "gamehealthd base URL")
	subject := flag.String("subject", "", "subject id to scope the health check to")
	category := flag.String("category", "", "event category filter for logs")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	command := "check"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := &Client{BaseURL: strings.TrimRight(*addr, "/"), HTTP: http.DefaultClient}
	code, err := run(ctx, client, command, *subject, *category, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthctl: %v\n", err)
	}
	os.Exit(code)
}

// run executes command and returns the process exit code: 0 healthy,
// 1 warning, 2 error or failure.
func run(ctx context.Context, client *Client, command, subject, category string, out io.Writer) (int, error) {
	s := newSpinner(spinner.WithWriter(os.Stderr))
	s.UpdateSuffix(" " + command + "...")
	s.Start()

	var (
		code int
		err  error
	)
	switch command {
	case "check":
		report, rerr := client.Check(ctx, subject)
		s.Stop()
		if err = rerr; err == nil {
			RenderReport(out, report)
			code = exitCode(report.Overall)
		}
	case "status":
		status, rerr := client.Status(ctx)
		s.Stop()
		if err = rerr; err == nil {
			RenderStatus(out, status)
			if status != "UP" {
				code = 2
			}
		}
	case "summary":
		summary, rerr := client.Summary(ctx)
		s.Stop()
		if err = rerr; err == nil {
			RenderSummary(out, summary)
		}
	case "logs":
		q := url.Values{}
		if category != "" {
			q.Set("category", category)
		}
		if subject != "" {
			q.Set("subject", subject)
		}
		logs, rerr := client.Logs(ctx, q)
		s.Stop()
		if err = rerr; err == nil {
			RenderLogs(out, logs)
		}
	default:
		s.Stop()
		return 2, fmt.Errorf("unknown command %q", command)
	}

	if err != nil {
		return 2, err
	}
	return code, nil
}
