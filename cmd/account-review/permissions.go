package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Print required AWS IAM permissions",
	Long: `Display the AWS IAM permissions used by the aws-config source and, when
ACCTREVIEW_BUCKET is set, by the remote payload cache.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, perm := range requiredPermissions(cfg.Bucket != "") {
			fmt.Fprintln(cmd.OutOrStdout(), perm)
		}
	},
}

func requiredPermissions(remoteCache bool) []string {
	perms := []string{
		"config:GetDiscoveredResourceCounts",
		"config:ListDiscoveredResources",
		"config:BatchGetResourceConfig",
	}
	if remoteCache {
		perms = append(perms, "s3:GetObject", "s3:PutObject", "s3:ListBucket")
	}
	return perms
}
