package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/appstate"
	"github.com/bionicotaku/lingo-services-social/internal/client"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
)

const (
	envEndpoint     = "SOCIAL_ENDPOINT"
	defaultEndpoint = "localhost:8000"
)

var errNoSession = errors.New("not logged in; run `socialctl login --user <id>` first")

// cli 保存全局参数，各子命令通过它获取会话、客户端与状态。
type cli struct {
	out         io.Writer
	endpoint    string
	sessionPath string
	timeout     time.Duration
	verbose     bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "socialctl",
		Short:         "Command line client for the social service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	endpoint := os.Getenv(envEndpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	root.PersistentFlags().StringVar(&c.endpoint, "endpoint", endpoint, "Service address (or set "+envEndpoint+")")
	root.PersistentFlags().StringVar(&c.sessionPath, "session", defaultSessionPath(), "Session file path")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log client requests to stderr")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.savedCmd(),
		c.saveCmd(),
		c.unsaveCmd(),
		c.followCmd(),
		c.followingCmd(),
	)
	return root
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "socialctl", "session.yaml")
}

func (c *cli) logger() log.Logger {
	if c.verbose {
		return log.NewStdLogger(os.Stderr)
	}
	return log.NewStdLogger(io.Discard)
}

func (c *cli) newClient(ctx context.Context, sess *appstate.Session) (*client.Client, error) {
	cfg := client.Config{Endpoint: c.endpoint, Timeout: c.timeout}
	if sess != nil {
		cfg.UserID = sess.UserID
		cfg.Token = sess.Token
		if sess.Endpoint != "" {
			cfg.Endpoint = sess.Endpoint
		}
	}
	return client.New(ctx, cfg, c.logger())
}

// restore 读取会话文件并从服务端重建状态。
func (c *cli) restore(ctx context.Context) (*appstate.State, *client.Client, error) {
	sess, err := appstate.LoadSession(c.sessionPath)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, errNoSession
	}
	api, err := c.newClient(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	state := appstate.New()
	if err := state.Populate(ctx, api); err != nil {
		_ = api.Close()
		return nil, nil, err
	}
	return state, api, nil
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
