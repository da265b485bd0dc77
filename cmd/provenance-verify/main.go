// Command provenance-verify reads a provenance record from stdin,
// verifies every signature in its chain against a trusted root CA, and
// prints the decoded steps as indented JSON. It exits non-zero and prints
// the taxonomy-kind error on any verification failure.
//
// This CLI is illustrative: a production verifying party would more
// likely call this package's libraries directly from its own service
// rather than shelling out to a standalone binary.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"

	"github.com/icebreakerone/provenance/provcert"
	"github.com/icebreakerone/provenance/provrecord"
)

func main() {
	logger.New("INFO")
	defer logger.OnExit()

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "provenance-verify",
		Short:         "Verify a provenance record and print its decoded steps",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newVerifyCmd())
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var rootCAPath string
	var certDir string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a provenance record read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, rootCAPath, certDir)
		},
	}
	cmd.Flags().StringVar(&rootCAPath, "root-ca", "", "path to a PEM file of trusted root certificates")
	cmd.Flags().StringVar(&certDir, "cert-dir", "", "directory of <serial>.pem chains, if the record is not self-contained")
	cmd.MarkFlagRequired("root-ca")

	return cmd
}

func runVerify(cmd *cobra.Command, rootCAPath, certDir string) error {
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading record from stdin: %w", err)
	}

	rootCA, err := os.ReadFile(rootCAPath)
	if err != nil {
		return fmt.Errorf("reading root ca: %w", err)
	}

	sealed, err := provrecord.Unmarshal(raw)
	if err != nil {
		logger.Sugar.Errorf("malformed record: %v", err)
		return err
	}

	provider, err := resolveProvider(sealed, rootCA, certDir)
	if err != nil {
		return err
	}

	if err := sealed.Verify(provider); err != nil {
		logger.Sugar.Errorf("verification failed: %v", err)
		return err
	}

	steps, err := sealed.Decoded()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(stepMaps(steps), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func resolveProvider(sealed *provrecord.Sealed, rootCA []byte, certDir string) (provrecord.CertificateProvider, error) {
	if certDir != "" {
		logger.Sugar.Debugf("resolving certificates from directory %s", certDir)
		return provcert.NewDirectoryProvider(rootCA, certDir)
	}
	logger.Sugar.Debugf("resolving certificates from the record's own embedded bundle")
	return provcert.NewSelfContainedProvider(rootCA, sealed.Certificates())
}

// stepMaps renders steps, each including its verifier-attached
// "_signature", for JSON output.
func stepMaps(steps []provrecord.Step) []map[string]any {
	out := make([]map[string]any, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Map())
	}
	return out
}
