// Command respcli is a small demonstration client for wirekv: it issues a
// single command over a freshly dialed Conn and prints the reply.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wirekv/wirekv"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "respcli [command] [args...]",
		Short: "Issue a single RESP command against a wirekv server",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRespCLI,
	}

	root.Flags().String("addr", "", "server address, overriding WIREKV_ADDR")
	root.Flags().String("pass", "", "AUTH password, overriding WIREKV_PASS")
	root.Flags().Int("db", -1, "database index, overriding WIREKV_DB")

	return root
}

func runRespCLI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if pass, _ := cmd.Flags().GetString("pass"); pass != "" {
		cfg.Pass = pass
	}
	if db, _ := cmd.Flags().GetInt("db"); db >= 0 {
		cfg.DB = db
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var opts []wirekv.DialOpt
	if cfg.Pass != "" {
		opts = append(opts, wirekv.DialAuthPass(cfg.Pass))
	}
	if cfg.DB != 0 {
		opts = append(opts, wirekv.DialSelectDB(cfg.DB))
	}

	conn, err := wirekv.Dial(dialCtx, "tcp", cfg.Addr, opts...)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	defer conn.Close()

	reply, err := issueCommand(conn, args)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

// issueCommand maps a handful of well-known command names onto their typed
// helpers; anything else is rejected rather than silently sent raw, since
// respcli is a demo of the typed helper surface, not a general RESP shell.
func issueCommand(conn *wirekv.Conn, args []string) (string, error) {
	name := strings.ToUpper(args[0])
	rest := args[1:]

	switch name {
	case "PING":
		return wirekv.Ping(conn)

	case "GET":
		if len(rest) != 1 {
			return "", fmt.Errorf("GET takes exactly one key")
		}
		v, err := wirekv.Get(conn, rest[0])
		if err != nil {
			return "", err
		}
		if v == nil {
			return "(nil)", nil
		}
		return string(v), nil

	case "SET":
		if len(rest) != 2 {
			return "", fmt.Errorf("SET takes exactly a key and a value")
		}
		ok, err := wirekv.Set(conn, rest[0], rest[1], wirekv.SetOpts{})
		if err != nil {
			return "", err
		}
		if ok {
			return "OK", nil
		}
		return "(nil)", nil

	case "DEL":
		if len(rest) == 0 {
			return "", fmt.Errorf("DEL takes at least one key")
		}
		n, err := wirekv.Del(conn, rest...)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", n), nil

	default:
		return "", fmt.Errorf("respcli: unsupported command %q", args[0])
	}
}
