package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/spf13/cobra"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/pipeline"
)

var errCollectFailed = errors.New("requirements collection failed")

var (
	collectProduct string
	collectHSCode  string
	collectRaw     bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect requirements for one product and print the JSON document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		req := pipeline.Request{IncludeRawData: collectRaw}
		if cmd.Flags().Changed("product") {
			req.Product = &collectProduct
		}
		if cmd.Flags().Changed("hs") {
			req.HSCode = &collectHSCode
		}
		res := services.Requirements.Respond(ctx, req)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pipeline.Payload(res)); err != nil {
			return err
		}
		if ET.IsLeft(res) {
			return errCollectFailed
		}
		logger.Info("Collect completed")
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectProduct, "product", "", "Product name, Korean or English")
	collectCmd.Flags().StringVar(&collectHSCode, "hs", "", "Optional HS code, e.g. 330499")
	collectCmd.Flags().BoolVar(&collectRaw, "raw", false, "Include raw provider payloads in the output")
}
