package indexer

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/services/nntp"
)

// serverSource adapts NNTP sessions to crawl.Source. A session that drops
// mid-run is replaced on the next call, so one lost connection only fails the
// group that was using it.
type serverSource struct {
	srv    config.Server
	logger *slog.Logger
	log    *slog.Logger

	mu     sync.Mutex
	client *nntp.Client
	dials  int
}

// newServerSource dials the first session; a failure here fails the run.
func newServerSource(ctx context.Context, srv config.Server, logger *slog.Logger) (*serverSource, error) {
	client, err := dialServer(ctx, srv, logger)
	if err != nil {
		return nil, err
	}
	return &serverSource{
		srv:    srv,
		logger: logger,
		log:    logging.NewComponentLogger(logger, "nntp"),
		client: client,
		dials:  1,
	}, nil
}

func (s *serverSource) Group(ctx context.Context, name string) (crawl.GroupInfo, error) {
	var info nntp.GroupInfo
	err := s.do(ctx, func(c *nntp.Client) error {
		var err error
		info, err = c.Group(ctx, name)
		return err
	})
	if err != nil {
		return crawl.GroupInfo{}, err
	}
	return crawl.GroupInfo{Name: info.Name, Count: info.Count, Low: info.Low, High: info.High}, nil
}

func (s *serverSource) Overview(ctx context.Context, group string, start, end int64, fn func(article.Record) error) error {
	return s.do(ctx, func(c *nntp.Client) error {
		return c.Overview(ctx, group, start, end, fn)
	})
}

// do runs op on a live session. ErrSessionClosed means op never reached the
// server, so it is retried once on a fresh session.
func (s *serverSource) do(ctx context.Context, op func(*nntp.Client) error) error {
	client, err := s.session(ctx)
	if err != nil {
		return err
	}
	err = op(client)
	if !errors.Is(err, nntp.ErrSessionClosed) {
		return err
	}
	if client, err = s.session(ctx); err != nil {
		return err
	}
	return op(client)
}

func (s *serverSource) session(ctx context.Context) (*nntp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && !s.client.Broken() {
		return s.client, nil
	}
	if s.client != nil {
		_ = s.client.Quit()
		s.client = nil
	}
	client, err := dialServer(ctx, s.srv, s.logger)
	if err != nil {
		return nil, err
	}
	s.dials++
	s.log.Info("reconnected to news server",
		logging.String("address", s.srv.Address()),
		logging.Int("sessions", s.dials),
	)
	s.client = client
	return client, nil
}

// Close quits the current session.
func (s *serverSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Quit()
	s.client = nil
	return err
}

func dialServer(ctx context.Context, srv config.Server, logger *slog.Logger) (*nntp.Client, error) {
	client, err := nntp.Dial(ctx, nntp.Config{
		Address:  srv.Address(),
		TLS:      srv.TLS,
		Username: srv.Username,
		Password: srv.Password,
		Timeout:  srv.Timeout(),
		Logger:   logger,
	})
	if err != nil {
		marker := services.ErrProtocol
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "indexer", "connect", srv.Address(), err)
	}
	return client, nil
}
