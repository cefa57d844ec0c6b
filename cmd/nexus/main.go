package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/cryptoprimitives"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/dag"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/events"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexusconfig"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/secretstore"
)

var log = logrus.StandardLogger()

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{Use: "nexus", Short: "workflow orchestration CLI"}
	rootCmd.PersistentFlags().String("config", "", "path to conf.toml (defaults to NEXUS_CONFIG_PATH or ~/.nexus/conf.toml)")

	rootCmd.AddCommand(dagCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(cryptoCmd())
	rootCmd.AddCommand(secretCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(toolCmd())

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func configPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func dagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dag", Short: "parse and validate workflow documents"}

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "parse a DAG document and run its structural/concurrency validator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			d, err := dag.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			if err := dag.Validate(d); err != nil {
				return fmt.Errorf("validate %s: %w", args[0], err)
			}

			fmt.Printf("%s: valid, %d vertices, %d edges\n", args[0], len(d.Vertices), len(d.Edges))
			return nil
		},
	}
	cmd.AddCommand(validate)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "inspect and rewrite conf.toml"}

	show := &cobra.Command{
		Use:   "show",
		Short: "load conf.toml and print the sui/nexus/tools sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nexusconfig.Load(configPathFlag(cmd))
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(struct {
				Sui   nexusconfig.SuiConfig              `json:"sui"`
				Nexus nexusconfig.NexusConfig             `json:"nexus"`
				Tools map[string]nexusconfig.ToolOverride `json:"tools"`
			}{cfg.Sui, cfg.Nexus, cfg.Tools}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "print the config file path that would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p := configPathFlag(cmd); p != "" {
				fmt.Println(p)
				return nil
			}
			p, err := nexusconfig.DefaultPath()
			if err != nil {
				return err
			}
			fmt.Println(p)
			return nil
		},
	}

	cmd.AddCommand(show, path)
	return cmd
}

func cryptoCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "crypto", Short: "identity key material"}

	identityNew := &cobra.Command{
		Use:   "identity-new",
		Short: "generate a fresh X3DH identity key and print its public components and secret scalar",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cryptoprimitives.GenerateIdentityKey()
			if err != nil {
				return err
			}

			x25519Pub, err := key.X25519Public()
			if err != nil {
				return err
			}
			scalar := key.Scalar()

			fmt.Printf("x25519_public: %x\n", x25519Pub)
			fmt.Printf("signing_public: %x\n", key.SigningPublic())
			fmt.Printf("scalar (keep secret): %x\n", scalar)
			return nil
		},
	}

	cmd.AddCommand(identityNew)
	return cmd
}

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "secret", Short: "manage the OS keyring master key / passphrase"}

	setPassphrase := &cobra.Command{
		Use:   "set-passphrase <passphrase>",
		Short: "store a passphrase in the OS keyring, deriving the secret-at-rest key from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if err := secretstore.SetPassphrase(args[0], force); err != nil {
				return err
			}
			fmt.Println("passphrase stored")
			return nil
		},
	}
	setPassphrase.Flags().Bool("force", false, "overwrite an existing raw key or passphrase")

	cmd.AddCommand(setPassphrase)
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "events", Short: "replay on-chain workflow events"}

	replay := &cobra.Command{
		Use:   "replay <websocket-url> <execution-id>",
		Short: "replay an execution's events from a WebSocket event source until it finishes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, executionID := args[0], args[1]

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			source, err := events.DialWebSocketEventSource(ctx, url)
			if err != nil {
				return err
			}
			defer source.Close()

			replayer := events.NewReplayer(source, executionID, events.WithLogger(log.WithField("execution_id", executionID)))

			trace, err := replayer.Run(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(trace, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.AddCommand(replay)
	return cmd
}

func toolCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tool", Short: "tool fully-qualified name utilities"}

	parse := &cobra.Command{
		Use:   "fqn-parse <fqn>",
		Short: "parse and render a tool FQN's domain/name/version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fqn.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("domain=%s name=%s version=%d\n", f.Domain(), f.Name(), f.Version())
			return nil
		},
	}

	cmd.AddCommand(parse)
	return cmd
}
