package testsupport

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Hangup in a reply makes the server drop the connection at that point.
const Hangup = "\x00hangup"

// NNTPServer is a scripted NNTP server listening on loopback. Every
// connection gets the greeting, then each command line is answered with the
// lines registered for it ("500 unknown command" otherwise).
type NNTPServer struct {
	ln       net.Listener
	greeting string
	replies  map[string][]string

	mu       sync.Mutex
	commands []string
	conns    []net.Conn
	wg       sync.WaitGroup
}

// NewNNTPServer starts a server and stops it on test cleanup.
func NewNNTPServer(t testing.TB, greeting string, replies map[string][]string) *NNTPServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &NNTPServer{ln: ln, greeting: greeting, replies: replies}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
	return s
}

// Addr returns host:port.
func (s *NNTPServer) Addr() string {
	return s.ln.Addr().String()
}

// HostPort splits Addr for config fields.
func (s *NNTPServer) HostPort() (string, int) {
	host, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.Atoi(port)
	return host, n
}

// Commands returns every command received so far, across connections.
func (s *NNTPServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Connections returns how many sessions were accepted.
func (s *NNTPServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *NNTPServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

func (s *NNTPServer) serve(conn net.Conn) {
	defer conn.Close()

	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "%s\r\n", s.greeting)
	if err := w.Flush(); err != nil {
		return
	}
	if !strings.HasPrefix(s.greeting, "2") {
		return
	}

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		reply, ok := s.replies[cmd]
		if !ok {
			reply = []string{"500 unknown command"}
		}
		for _, l := range reply {
			if l == Hangup {
				_ = w.Flush()
				return
			}
			fmt.Fprintf(w, "%s\r\n", l)
		}
		if err := w.Flush(); err != nil {
			return
		}
		if cmd == "QUIT" {
			return
		}
	}
}

// OverviewReply wraps overview rows in a 224 reply and the closing dot line.
func OverviewReply(rows ...string) []string {
	out := make([]string, 0, len(rows)+2)
	out = append(out, "224 overview follows")
	out = append(out, rows...)
	return append(out, ".")
}
