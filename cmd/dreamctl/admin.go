package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samjhill/dream-companion/internal/database"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/premium"
)

// --- lexicon commands ---

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Inspect the keyword tables used by the analysis",
}

var lexiconValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a lexicon file (default: the configured lexicon)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Lexicon.Path
		if len(args) == 1 {
			path = args[0]
		}

		lex, err := lexicon.Resolve(path)
		if err != nil {
			return err
		}
		if path == "" {
			path = "built-in"
		}
		fmt.Printf("Lexicon %s is valid (version %s)\n", path, lex.Version())
		fmt.Printf("  Archetypes: %d\n", len(lex.Archetypes()))
		fmt.Printf("  Emotions: %d\n", len(lex.Emotions()))
		fmt.Printf("  Time periods: %d\n", len(lex.Periods()))
		fmt.Printf("  Symbols: %d in %d categories\n", len(lex.Symbols()), len(lex.Categories()))
		return nil
	},
}

var lexiconDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective lexicon as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		lex, err := lexicon.Resolve(cfg.Lexicon.Path)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(lex.Tables())
	},
}

func init() {
	lexiconCmd.AddCommand(lexiconValidateCmd)
	lexiconCmd.AddCommand(lexiconDumpCmd)
}

// --- subscription commands ---

var (
	subscriptionPlan   string
	subscriptionMonths int
)

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manage journal subscriptions",
}

var subscriptionGrantCmd = &cobra.Command{
	Use:   "grant <user>",
	Short: "Grant a subscription plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if subscriptionPlan != database.PlanBasic && subscriptionPlan != database.PlanPremium {
			return fmt.Errorf("invalid plan %q: want basic or premium", subscriptionPlan)
		}
		checker, closeDB, err := openChecker()
		if err != nil {
			return err
		}
		defer closeDB()

		end, err := checker.Grant(args[0], subscriptionPlan, subscriptionMonths)
		if err != nil {
			return err
		}
		fmt.Printf("Granted %s to %s until %s\n", subscriptionPlan, args[0], end.Format("2006-01-02"))
		return nil
	},
}

var subscriptionRevokeCmd = &cobra.Command{
	Use:   "revoke <user>",
	Short: "Cancel a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checker, closeDB, err := openChecker()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := checker.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Printf("Revoked subscription of %s\n", args[0])
		return nil
	},
}

var subscriptionStatusCmd = &cobra.Command{
	Use:   "status <user>",
	Short: "Show a subscription and its features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checker, closeDB, err := openChecker()
		if err != nil {
			return err
		}
		defer closeDB()

		st, err := checker.Status(args[0])
		if err != nil {
			return err
		}
		plan, end := "none", "never"
		if st.SubscriptionType != nil {
			plan = *st.SubscriptionType
		}
		if st.SubscriptionEnd != nil {
			end = *st.SubscriptionEnd
		}
		fmt.Printf("User: %s\n", args[0])
		fmt.Printf("  Plan: %s\n", plan)
		fmt.Printf("  Premium active: %t\n", st.IsPremium)
		fmt.Printf("  Ends: %s\n", end)
		fmt.Println("  Features:")
		for _, f := range st.Features {
			fmt.Printf("    - %s\n", f)
		}
		return nil
	},
}

func init() {
	subscriptionGrantCmd.Flags().StringVar(&subscriptionPlan, "plan", database.PlanPremium, "Plan: basic or premium")
	subscriptionGrantCmd.Flags().IntVar(&subscriptionMonths, "months", 1, "Number of 30-day months")

	subscriptionCmd.AddCommand(subscriptionGrantCmd)
	subscriptionCmd.AddCommand(subscriptionRevokeCmd)
	subscriptionCmd.AddCommand(subscriptionStatusCmd)
}

func openChecker() (*premium.Checker, func(), error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	checker := premium.NewChecker(db, cfg.Premium.CacheTTL, premium.WithLogger(logger))
	return checker, func() {
		if err := db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "closing database:", err)
		}
	}, nil
}
