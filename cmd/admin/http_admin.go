package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	do(http.MethodGet, adminURL(*baseURL, "/admin/v1/state"), 5*time.Second)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	do(http.MethodPost, adminURL(*baseURL, "/admin/v1/snapshot"), 10*time.Second)
}

func dimensionCmd(action string, args []string) {
	fs := flag.NewFlagSet(action, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: admin %s [-url URL] DIMENSION\n", action)
		os.Exit(2)
	}
	dim := url.PathEscape(strings.TrimSpace(fs.Arg(0)))
	do(http.MethodPost, adminURL(*baseURL, "/admin/v1/dimensions/"+dim+"/"+action), 10*time.Second)
}

func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	typ := fs.String("type", "", "event type filter")
	limit := fs.Int("limit", 100, "result limit")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin history [-url URL] [-type T] PAIR")
		os.Exit(2)
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprint(*limit))
	if t := strings.TrimSpace(*typ); t != "" {
		q.Set("type", t)
	}
	pair := url.PathEscape(strings.TrimSpace(fs.Arg(0)))
	do(http.MethodGet, adminURL(*baseURL, "/admin/v1/pairs/"+pair+"/history")+"?"+q.Encode(), 5*time.Second)
}

func adminURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

// do prints the response body and exits non-zero on a non-2xx status.
func do(method, u string, timeout time.Duration) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
