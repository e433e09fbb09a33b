package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"foodorder/internal/modules/payment"
	"foodorder/internal/pkg/borica"
)

type callbackReport struct {
	Valid            bool
	Outcome          borica.Outcome
	CorrelationToken string
	Message          string
	Response         *borica.PaymentResponse
}

// inspectCallback re-verifies a captured callback body offline.
func inspectCallback(raw string, v *borica.Verifier, lang string) (*callbackReport, error) {
	form, err := url.ParseQuery(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse callback body: %w", err)
	}
	resp := borica.ParseResponse(form)
	ok, err := v.Verify(resp)
	if err != nil {
		return nil, err
	}
	rep := &callbackReport{
		Valid:            ok,
		CorrelationToken: payment.CorrelationToken(resp.Order, resp.Nonce),
		Response:         resp,
	}
	if ok {
		rep.Outcome = borica.Classify(resp)
		rep.Message = borica.Message(resp.RC, lang)
	}
	return rep, nil
}

type simulateOptions struct {
	Terminal string
	Order    string
	Nonce    string
	Amount   string
	Currency string
	Action   string
	RC       string
}

// simulatedCallback builds a gateway-signed callback for a sandbox key pair.
func simulatedCallback(opts simulateOptions, keyPath, passphrase string, now time.Time) (url.Values, error) {
	key, err := borica.LoadPrivateKey(keyPath, passphrase)
	if err != nil {
		return nil, err
	}
	resp := &borica.PaymentResponse{
		Action:    opts.Action,
		RC:        opts.RC,
		Terminal:  opts.Terminal,
		TrType:    borica.TrTypeSale,
		Amount:    opts.Amount,
		Currency:  opts.Currency,
		Order:     opts.Order,
		Nonce:     opts.Nonce,
		Timestamp: now.UTC().Format("20060102150405"),
	}
	if borica.Classify(resp).Succeeded() {
		resp.Approval = "S" + opts.Order[len(opts.Order)-5:]
		resp.IntRef = strings.ToUpper(opts.Nonce[len(opts.Nonce)-16:])
		resp.Card = "5100XXXXXXXX0022"
	}
	sig, err := borica.SignResponse(resp, key)
	if err != nil {
		return nil, err
	}
	resp.PSign = sig
	return resp.Values(), nil
}

func verifyCallbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-callback [file]",
		Short: "Re-verify a captured callback body",
		Long: `Reads a urlencoded callback body from a file (or stdin with "-")
and checks P_SIGN against the gateway public key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath, _ := cmd.Flags().GetString("public-key")
			lang, _ := cmd.Flags().GetString("lang")

			var raw []byte
			var err error
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			v, err := borica.NewVerifier(keyPath)
			if err != nil {
				return err
			}
			rep, err := inspectCallback(string(raw), v, lang)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signature:   %s\n", map[bool]string{true: "VALID", false: "INVALID"}[rep.Valid])
			fmt.Fprintf(out, "Order:       %s\n", rep.Response.Order)
			fmt.Fprintf(out, "Correlation: %s\n", rep.CorrelationToken)
			fmt.Fprintf(out, "Amount:      %s %s\n", rep.Response.Amount, rep.Response.Currency)
			fmt.Fprintf(out, "ACTION/RC:   %s/%s\n", rep.Response.Action, rep.Response.RC)
			if !rep.Valid {
				return fmt.Errorf("callback signature is not valid")
			}
			fmt.Fprintf(out, "Outcome:     %s\n", rep.Outcome)
			fmt.Fprintf(out, "Reason:      %s\n", rep.Message)
			return nil
		},
	}

	cmd.Flags().String("public-key", envOr("GATEWAY_PUBLIC_KEY_PATH", ""), "Gateway public key (PEM)")
	cmd.Flags().String("lang", "EN", "Language of the reason text (BG or EN)")

	return cmd
}

func simulateCallbackCmd() *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate-callback",
		Short: "Sign a fake gateway result with a sandbox key",
		Long: `Builds and signs a callback as the gateway would, for local testing.
The server must be configured with the matching public key.
With --post the form is sent to the callback URL; otherwise it is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath, _ := cmd.Flags().GetString("private-key")
			passphrase, _ := cmd.Flags().GetString("passphrase")
			postURL, _ := cmd.Flags().GetString("post")

			if len(opts.Order) != 6 || len(opts.Nonce) < 16 {
				return fmt.Errorf("--order must be 6 digits and --nonce at least 16 characters")
			}
			form, err := simulatedCallback(opts, keyPath, passphrase, time.Now())
			if err != nil {
				return err
			}
			if postURL == "" {
				fmt.Fprintln(cmd.OutOrStdout(), form.Encode())
				return nil
			}

			client := &http.Client{
				Timeout: 10 * time.Second,
				CheckRedirect: func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				},
			}
			resp, err := client.PostForm(postURL, form)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", resp.Status, resp.Header.Get("Location"))
			return nil
		},
	}

	cmd.Flags().String("private-key", "", "Sandbox gateway private key (PEM)")
	cmd.Flags().String("passphrase", "", "Private key passphrase")
	cmd.Flags().String("post", "", "Callback URL to POST the form to")
	cmd.Flags().StringVar(&opts.Terminal, "terminal", envOr("GATEWAY_TERMINAL", ""), "TERMINAL")
	cmd.Flags().StringVar(&opts.Order, "order", "", "ORDER (6 digits)")
	cmd.Flags().StringVar(&opts.Nonce, "nonce", "", "NONCE sent with the request")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "AMOUNT, e.g. 25.40")
	cmd.Flags().StringVar(&opts.Currency, "currency", envOr("GATEWAY_CURRENCY", ""), "CURRENCY")
	cmd.Flags().StringVar(&opts.Action, "action", borica.ActionSuccess, "ACTION")
	cmd.Flags().StringVar(&opts.RC, "rc", borica.RCApproved, "RC")
	_ = cmd.MarkFlagRequired("private-key")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("nonce")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
