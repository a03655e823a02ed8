package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/log"
	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ciphermarket/internal/app"
	"ciphermarket/internal/cmcrypto"
	"ciphermarket/internal/oracle"
)

func newStartCmd() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Run the ABCI application with an in-process decryption oracle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStart(cmd)
		},
	}

	startCmd.Flags().String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
	startCmd.Flags().String("transport", "socket", "ABCI transport (socket|grpc)")
	startCmd.Flags().String("owner", "", "initial owner address (required for a fresh chain)")
	startCmd.Flags().Uint64("cooldown-secs", 0, "initial cooldown window (0 keeps the default)")
	startCmd.Flags().String("oracle-key", "", "hex-encoded 32-byte oracle scalar (fresh random key when empty)")
	return startCmd
}

func runStart(cmd *cobra.Command) error {
	logger := log.NewLogger(os.Stdout)

	svc, err := buildOracle(logger, viper.GetString("oracle-key"))
	if err != nil {
		return err
	}
	logger.Info("oracle online", "pubKey", hex.EncodeToString(svc.PubKey()))

	a, err := app.New(viper.GetString("home"), app.Config{
		Owner:        viper.GetString("owner"),
		OraclePubKey: svc.PubKey(),
		CooldownSecs: viper.GetUint64("cooldown-secs"),
	}, logger, svc)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	srv, err := server.NewServer(viper.GetString("addr"), viper.GetString("transport"), a)
	if err != nil {
		return fmt.Errorf("abci server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("abci server start: %w", err)
	}
	defer func() { _ = srv.Stop() }()
	logger.Info("abci server listening", "addr", viper.GetString("addr"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	return nil
}

// buildOracle runs the devnet decryption service in-process. A fixed key
// keeps handles decryptable across restarts; without one, every boot mints
// a fresh keypair and previously issued handles become undecryptable.
func buildOracle(logger log.Logger, hexKey string) (*oracle.Service, error) {
	if hexKey == "" {
		return oracle.NewService(logger)
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("oracle-key: %w", err)
	}
	sk, err := cmcrypto.ScalarFromBytesCanonical(raw)
	if err != nil {
		return nil, fmt.Errorf("oracle-key: %w", err)
	}
	return oracle.NewServiceWithKey(logger, sk)
}
