package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/services/nntp"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckServer connects and authenticates, then selects every group in
// groups. The first result describes the connection; one result follows per
// group. Groups are not checked when the connection fails.
func CheckServer(ctx context.Context, srv config.Server, groups []string) []Result {
	const name = "News server"
	addr := srv.Address()

	client, err := nntp.Dial(ctx, nntp.Config{
		Address:  addr,
		TLS:      srv.TLS,
		Username: srv.Username,
		Password: srv.Password,
		Timeout:  srv.Timeout(),
	})
	if err != nil {
		return []Result{{Name: name, Detail: fmt.Sprintf("%s (%s)", addr, summarizeDialError(err))}}
	}
	defer client.Quit()

	detail := fmt.Sprintf("%s (connected", addr)
	if srv.Username != "" {
		detail += ", authenticated"
	}
	detail += ")"
	results := []Result{{Name: name, Passed: true, Detail: detail}}

	for _, group := range groups {
		info, err := client.Group(ctx, group)
		if err != nil {
			results = append(results, Result{Name: "Group " + group, Detail: summarizeDialError(err)})
			continue
		}
		results = append(results, Result{
			Name:   "Group " + group,
			Passed: true,
			Detail: fmt.Sprintf("%d articles (%d-%d)", info.Count, info.Low, info.High),
		})
	}
	return results
}

// summarizeDialError produces a human-readable summary for server failures.
func summarizeDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (server unreachable)"
	}
	var reply *nntp.ReplyError
	if errors.As(err, &reply) {
		switch {
		case reply.NoSuchGroup():
			return "no such group"
		case reply.Code == 481 || reply.Code == 482:
			return fmt.Sprintf("authentication rejected (%d %s)", reply.Code, reply.Message)
		default:
			return fmt.Sprintf("server replied %d %s", reply.Code, reply.Message)
		}
	}
	return err.Error()
}
