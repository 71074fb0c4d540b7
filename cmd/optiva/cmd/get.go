package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var queryParams []string

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "GET any authenticated endpoint and print the response",
	Example: `  optiva get /profile
  optiva get /alcohol/paged -q drinkType=WINE -q size=5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		for _, kv := range queryParams {
			k, val, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("query parameter %q is not key=value", kv)
			}
			q.Add(k, val)
		}

		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		var out json.RawMessage
		if err := m.API().Do(cmd.Context(), http.MethodGet, args[0], q, nil, &out); err != nil {
			return err
		}
		var doc any
		if len(out) > 0 {
			if err := json.Unmarshal(out, &doc); err != nil {
				return err
			}
		}
		return render(cmd.OutOrStdout(), doc)
	},
}

func init() {
	getCmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "Query parameter as key=value (repeatable)")
	rootCmd.AddCommand(getCmd)
}
