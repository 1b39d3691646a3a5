// Package cli implements the xmppcert command.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcpherrinm/xmppcert/decoder"
	"github.com/mcpherrinm/xmppcert/internal/config"
	"github.com/mcpherrinm/xmppcert/internal/logging"
)

// app is the state shared by all subcommands. It is filled in by setup before
// any subcommand runs.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	log     *slog.Logger
	decoder decoder.Decoder
}

// NewRootCommand returns the xmppcert command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "xmppcert",
		Short: "Inspect and verify XMPP identities in X.509 certificates",
		Long: `Inspect and verify XMPP identities in X.509 certificates.

xmppcert decodes a PEM certificate and reports the JIDs it is issued for,
or checks it the way an XMPP server checks a peer: as a server certificate
for a domain, or as a client certificate for an account.

Settings come from --config, then XMPPCERT_* environment variables, then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (YAML, TOML or JSON)")
	flags.String("decoder", "", "certificate decoder: der or platform (default der)")
	flags.String("log-level", "", "log level: debug, info, warn or error (default info)")
	flags.String("log-format", "", "log format: text or json (default text)")
	a.bind(config.KeyDecoder, flags, "decoder")
	a.bind(config.KeyLogLevel, flags, "log-level")
	a.bind(config.KeyLogFormat, flags, "log-format")

	rootCmd.AddCommand(a.inspectCmd())
	rootCmd.AddCommand(a.jidsCmd())
	rootCmd.AddCommand(a.verifyCmd())
	return rootCmd
}

// Execute runs the xmppcert command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) bind(key string, flags *pflag.FlagSet, name string) {
	if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.v.SetConfigFile(path)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	d, err := decoder.New(cfg.Decoder, decoder.WithLogger(log))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	a.cfg = cfg
	a.log = log
	a.decoder = d
	log.Debug("configured", "decoder", cfg.Decoder, "srv_type", cfg.SRVType, "domains", cfg.Domains)
	return nil
}
