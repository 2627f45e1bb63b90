package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowctl/internal/logger"
)

// completeSourceIDs suggests IDs from the local snapshot cache so
// completion works without a round trip to the backend.
func completeSourceIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || idCompleter == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ids, err := idCompleter.IDs(commandContext(cmd), toComplete)
	if err != nil {
		logger.Debug("completing source ids: %v", err)
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
