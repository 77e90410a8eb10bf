package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/domain"
	"github.com/soyeahso/caselink/internal/gateway"
	"github.com/soyeahso/caselink/internal/session"
	"github.com/soyeahso/caselink/internal/ui"
	"github.com/soyeahso/caselink/internal/uicontext"
	"github.com/spf13/cobra"
)

// turner runs one turn. *gateway.Remote implements it; localTurner adapts
// an in-process orchestrator.
type turner interface {
	Turn(ctx context.Context, req agent.TurnRequest) (*gateway.RemoteTurn, error)
}

type localTurner struct {
	orch *agent.Orchestrator
}

func (l localTurner) Turn(ctx context.Context, req agent.TurnRequest) (*gateway.RemoteTurn, error) {
	res, err := l.orch.Turn(ctx, req)
	if err != nil {
		return nil, err
	}
	return &gateway.RemoteTurn{
		SessionID:        res.SessionID,
		AssistantMessage: res.AssistantMessage,
		Actions:          res.Actions,
		RawModelResponse: res.RawModelResponse,
	}, nil
}

func newChatCmd() *cobra.Command {
	var (
		url    string
		token  string
		path   string
		search string
		local  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive client: send instructions and apply the returned actions",
		Long: "chat keeps a local session and view state. Each line is sent as a turn;\n" +
			"the returned actions are re-validated and applied to the view.\n\n" +
			"Commands: /new starts a new session, /history prints the log,\n" +
			"/state prints the view, /quit exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				t        turner
				evidence ui.EvidenceFetcher
			)
			if local {
				db, err := openStore(ctx, cfg, paths, log)
				if err != nil {
					return err
				}
				defer db.Close()
				t = localTurner{orch: newOrchestrator(cfg, db, newModelClient(cfg, log), nil, log)}
				evidence = db
			} else {
				if url == "" {
					url = fmt.Sprintf("ws://127.0.0.1:%d/ws", cfg.Gateway.Port)
				}
				auth := gateway.ResolveAuth(cfg.Gateway.Auth)
				remote, err := gateway.Dial(ctx, gateway.RemoteOptions{
					URL:      url,
					Token:    firstNonEmpty(token, auth.Token),
					Password: auth.Password,
					ClientID: "caselink-chat",
				}, log)
				if err != nil {
					return err
				}
				defer remote.Close()
				t = remote
				evidence = remote
			}

			sm := session.NewManager(newSessionStore(cfg, paths), log)
			c := &chat{
				turner: t,
				exec:   ui.NewExecutor(evidence, log),
				sm:     sm,
				state:  ui.NewState(path, search),
				out:    cmd.OutOrStdout(),
			}
			return c.run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "gateway WebSocket URL (default ws://127.0.0.1:<gateway.port>/ws)")
	cmd.Flags().StringVar(&token, "token", "", "gateway token")
	cmd.Flags().StringVar(&path, "path", "/", "starting view path")
	cmd.Flags().StringVar(&search, "search", "", "starting query string, e.g. ?city=Chicago")
	cmd.Flags().BoolVar(&local, "local", false, "run turns in-process instead of through a gateway")

	return cmd
}

// chat is the interactive loop. It owns the view state between turns.
type chat struct {
	turner turner
	exec   *ui.Executor
	sm     *session.Manager
	state  ui.State
	out    io.Writer
}

func (c *chat) run(ctx context.Context, in io.Reader) error {
	id, err := c.sm.Current()
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, noticeStyle.Render("session "+id)+"\n")
	fmt.Fprint(c.out, renderState(c.state))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, userStyle.Render("you")+" ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/new":
			id, err := c.sm.NewSession()
			if err != nil {
				return err
			}
			fmt.Fprint(c.out, noticeStyle.Render(session.NewSessionNotice+" ("+id+")")+"\n")
			continue
		case "/history":
			msgs, err := c.sm.Messages()
			if err != nil {
				return err
			}
			fmt.Fprint(c.out, renderHistory(msgs))
			continue
		case "/state":
			fmt.Fprint(c.out, renderState(c.state))
			continue
		}

		if err := c.turn(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprint(c.out, renderError(err))
		}
	}
}

// turn sends one answer and applies the reply. The history sent is read
// before the answer is logged; the server appends the answer itself.
func (c *chat) turn(ctx context.Context, answer string) error {
	id, err := c.sm.Current()
	if err != nil {
		return err
	}
	history, err := c.sm.History()
	if err != nil {
		return err
	}
	if err := c.sm.Append(domain.RoleUser, answer); err != nil {
		return err
	}

	res, err := c.turner.Turn(ctx, agent.TurnRequest{
		SessionID: id,
		History:   history,
		UIContext: &uicontext.UIContext{Path: c.state.Path, Search: c.state.Search()},
		Answer:    answer,
	})
	if err != nil {
		_ = c.sm.Append(domain.RoleSystem, "Request failed: "+err.Error())
		return err
	}

	applied := c.exec.Apply(ctx, c.state, res.Actions, answer)
	c.state = applied.State
	if err := c.sm.Append(domain.RoleAssistant, res.AssistantMessage); err != nil {
		return err
	}
	fmt.Fprint(c.out, renderTurn(res.AssistantMessage, applied))
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
