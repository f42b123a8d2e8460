package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/storegate/internal/gateway"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

func main() {
	var baseURL = envOr("STOREGATE_URL", "http://localhost:8080")

	root := &cobra.Command{
		Use:   "storegatectl",
		Short: "CLI operativa para el gateway",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del gateway (env STOREGATE_URL)")

	httpClient := &http.Client{Timeout: 15 * time.Second}

	get := func(path string) error {
		resp, err := httpClient.Get(strings.TrimRight(baseURL, "/") + path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
		} else {
			fmt.Println(string(body))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Chequea liveness del gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/healthz")
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "ready",
		Short: "Chequea readiness (datastore + cache)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/readyz")
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "keygen",
		Short: "Genera claves base64 para signing_key y seal_key",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"signing_key", "seal_key"} {
				var key [32]byte
				if _, err := rand.Read(key[:]); err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", name, base64.StdEncoding.EncodeToString(key[:]))
			}
			return nil
		},
	})

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Herramientas para el parámetro OAuth state",
	}
	stateCmd.AddCommand(&cobra.Command{
		Use:   "decode <state>",
		Short: "Decodifica un parámetro state (JSON o base64 JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ok := tenant.DecodeState(args[0])
			if !ok {
				return fmt.Errorf("state no decodificable")
			}
			p, _ := json.MarshalIndent(env, "", "  ")
			fmt.Println(string(p))
			return nil
		},
	})
	root.AddCommand(stateCmd)

	root.AddCommand(&cobra.Command{
		Use:   "classify <path> [path...]",
		Short: "Muestra la categoría de protección de uno o más paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := gateway.NewClassifier(nil)
			for _, p := range args {
				fmt.Printf("%-40s %s\n", p, c.Classify(p))
			}
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
