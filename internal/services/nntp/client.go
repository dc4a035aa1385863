package nntp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/logging"
)

const defaultTimeout = 30 * time.Second

// maxLineBytes bounds one overview row; long crossposted Xref fields can
// exceed bufio.Scanner's 64 KiB default.
const maxLineBytes = 1 << 20

// Config describes one server connection.
type Config struct {
	Address  string
	TLS      bool
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the default client TLS settings.
	TLSConfig *tls.Config
	Logger    *slog.Logger
}

// GroupInfo is the reply to GROUP.
type GroupInfo struct {
	Name  string
	Count int64
	Low   int64
	High  int64
}

// ErrSessionClosed is returned by calls on a session that was quit or lost
// its connection. Nothing was sent to the server.
var ErrSessionClosed = errors.New("nntp: session closed")

// Client is a single NNTP session. Calls are serialized.
type Client struct {
	mu       sync.Mutex
	conn     net.Conn
	text     *textproto.Conn
	timeout  time.Duration
	logger   *slog.Logger
	current  string
	posting  bool
	broken   bool
	closed   bool
	greeting string
}

// Dial connects, reads the greeting and authenticates when credentials are
// configured.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, errors.New("nntp: server address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	var (
		conn net.Conn
		err  error
	)
	if cfg.TLS {
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			host, _, splitErr := net.SplitHostPort(cfg.Address)
			if splitErr != nil {
				host = cfg.Address
			}
			tlsCfg = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		}
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: tlsCfg}
		conn, err = tlsDialer.DialContext(ctx, "tcp", cfg.Address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Address)
	}
	if err != nil {
		return nil, fmt.Errorf("nntp: dial %s: %w", cfg.Address, err)
	}

	c := newClient(conn, timeout, cfg.Logger)
	if err := c.readGreeting(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.Username != "" {
		if err := c.Auth(ctx, cfg.Username, cfg.Password); err != nil {
			_ = c.Quit()
			return nil, err
		}
	}
	return c, nil
}

// NewClient wraps an established connection and reads the greeting.
func NewClient(ctx context.Context, conn net.Conn, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := newClient(conn, timeout, logger)
	if err := c.readGreeting(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(conn net.Conn, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		text:    textproto.NewConn(conn),
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "nntp"),
	}
}

// Greeting returns the server's welcome text.
func (c *Client) Greeting() string {
	return c.greeting
}

// PostingAllowed reports whether the greeting was 200.
func (c *Client) PostingAllowed() bool {
	return c.posting
}

func (c *Client) readGreeting(ctx context.Context) error {
	return c.guard(ctx, func() error {
		code, msg, err := c.text.ReadCodeLine(2)
		if err != nil {
			return replyError("greeting", err)
		}
		c.posting = code == codePostingAllowed
		c.greeting = msg
		c.logger.Debug("connected", logging.Int("code", code), logging.String("greeting", msg))
		return nil
	})
}

// Auth runs AUTHINFO USER and, when asked, AUTHINFO PASS.
func (c *Client) Auth(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.guard(ctx, func() error {
		code, msg, err := c.command("AUTHINFO USER", 0, "AUTHINFO USER %s", username)
		if err != nil {
			return err
		}
		switch code {
		case codeAuthAccepted:
			return nil
		case codePasswordRequired:
		default:
			return &ReplyError{Command: "AUTHINFO USER", Code: code, Message: msg}
		}
		if _, _, err := c.command("AUTHINFO PASS", codeAuthAccepted, "AUTHINFO PASS %s", password); err != nil {
			return err
		}
		c.logger.Debug("authenticated", logging.String("user", username))
		return nil
	})
}

// Group selects name and returns its article range.
func (c *Client) Group(ctx context.Context, name string) (GroupInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var info GroupInfo
	err := c.guard(ctx, func() error {
		var err error
		info, err = c.selectGroup(name)
		return err
	})
	return info, err
}

func (c *Client) selectGroup(name string) (GroupInfo, error) {
	_, msg, err := c.command("GROUP", codeGroupSelected, "GROUP %s", name)
	if err != nil {
		return GroupInfo{}, err
	}
	info, err := parseGroupReply(msg)
	if err != nil {
		return GroupInfo{}, err
	}
	if info.Name == "" {
		info.Name = name
	}
	c.current = name
	return info, nil
}

// parseGroupReply decodes "count low high name".
func parseGroupReply(msg string) (GroupInfo, error) {
	fields := strings.Fields(msg)
	if len(fields) < 3 {
		return GroupInfo{}, fmt.Errorf("nntp: malformed GROUP reply %q", msg)
	}
	var nums [3]int64
	for i := range nums {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return GroupInfo{}, fmt.Errorf("nntp: malformed GROUP reply %q", msg)
		}
		nums[i] = n
	}
	info := GroupInfo{Count: nums[0], Low: nums[1], High: nums[2]}
	if len(fields) > 3 {
		info.Name = fields[3]
	}
	return info, nil
}

// Overview requests XOVER start-end for group and calls fn for every row in
// server order. An empty range (420/423) is not an error. When fn fails the
// session is abandoned because the rest of the listing is still in flight.
func (c *Client) Overview(ctx context.Context, group string, start, end int64, fn func(article.Record) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.guard(ctx, func() error {
		if c.current != group {
			if _, err := c.selectGroup(group); err != nil {
				return err
			}
		}

		id, err := c.text.Cmd("XOVER %d-%d", start, end)
		if err != nil {
			return fmt.Errorf("nntp: send XOVER: %w", err)
		}
		c.text.StartResponse(id)
		defer c.text.EndResponse(id)

		code, msg, err := c.text.ReadCodeLine(0)
		if err != nil {
			return replyError("XOVER", err)
		}
		switch code {
		case codeOverviewFollows:
		case codeNoArticles, codeNoArticlesRange:
			return nil
		default:
			return &ReplyError{Command: "XOVER", Code: code, Message: msg}
		}

		scanner := bufio.NewScanner(c.text.DotReader())
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		var malformed int
		for scanner.Scan() {
			// keep the deadline moving while rows arrive
			c.touch()
			if err := ctx.Err(); err != nil {
				c.broken = true
				return err
			}
			rec, err := article.ParseLine(group, scanner.Text())
			if err != nil {
				malformed++
				continue
			}
			if err := fn(rec); err != nil {
				c.broken = true
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			c.broken = true
			return fmt.Errorf("nntp: read overview: %w", err)
		}
		if malformed > 0 {
			logging.WarnWithContext(c.logger, "skipped malformed overview rows", "nntp_overview_malformed",
				logging.String(logging.FieldGroup, group),
				logging.Int("rows", malformed),
				logging.String(logging.FieldImpact, "articles in those rows are not indexed"),
			)
		}
		return nil
	})
}

// Broken reports whether the session can no longer be used. A broken
// session still needs Quit to release the connection.
func (c *Client) Broken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken || c.closed
}

// Quit ends the session and closes the connection. It is safe to call more
// than once.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.broken {
		return c.text.Close()
	}
	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	_, _, err := c.command("QUIT", codeClosing, "QUIT")
	closeErr := c.text.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func (c *Client) command(name string, expect int, format string, args ...any) (int, string, error) {
	id, err := c.text.Cmd(format, args...)
	if err != nil {
		return 0, "", fmt.Errorf("nntp: send %s: %w", name, err)
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)

	code, msg, err := c.text.ReadCodeLine(expect)
	if err != nil {
		return code, msg, replyError(name, err)
	}
	return code, msg, nil
}

// guard applies the idle timeout and aborts blocked I/O when ctx ends.
func (c *Client) guard(ctx context.Context, op func() error) error {
	if c.closed || c.broken {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.touch()
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	err := op()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		c.broken = true
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.broken = true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.broken = true
	}
	return err
}

func (c *Client) touch() {
	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
}
