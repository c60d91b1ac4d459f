package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rewario/internal/app"
	"rewario/internal/catalog"
	"rewario/internal/domain"
	"rewario/internal/engine"
	"rewario/internal/fetch"
	rewariosdk "rewario/sdk/go"
)

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Browse and work on tasks",
		Long:  "Tasks go available -> in_progress -> completed. Completing pays the task's coins once; completing again is a no-op.",
	}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskStartCmd())
	cmd.AddCommand(taskCompleteCmd())
	cmd.AddCommand(taskResetCmd())
	return cmd
}

// withSource runs fn against the remote API when --remote is set, otherwise the local catalog.
// Both go through the simulated latency configured in rewario.yml.
func withSource(cmd *cobra.Command, fn func(context.Context, fetch.Client) error) error {
	remote, _ := cmd.Flags().GetString("remote")
	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		var src fetch.Source = fetch.Local{Catalog: a.Engine.Catalog}
		if remote != "" {
			src = rewariosdk.New(remote)
		}
		return fn(ctx, fetch.Client{
			Source:      src,
			ListLatency: a.Config.Fetch.ListLatency,
			GetLatency:  a.Config.Fetch.GetLatency,
		})
	})
}

func taskListCmd() *cobra.Command {
	var f catalog.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSource(cmd, func(ctx context.Context, c fetch.Client) error {
				tasks, err := c.ListTasks(ctx, f).Await()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", "", "category tag (apps, surveys, ads, games, referrals, all)")
	cmd.Flags().StringVar(&f.Search, "search", "", "match title or description")
	cmd.Flags().String("remote", "", "API base URL, e.g. http://127.0.0.1:8080/v0")
	return cmd
}

func printTasks(tasks []domain.Task) {
	tw := newTable("ID", "Title", "Category", "Partner", "Reward (INR)", "Coins", "Min level", "Status")
	for _, t := range tasks {
		tw.AppendRow(table.Row{t.ID, t.Title, t.Category, t.Partner.Name, t.RewardINR, t.CoinValue, t.RequiredLevel(), t.Status})
	}
	tw.Render()
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSource(cmd, func(ctx context.Context, c fetch.Client) error {
				t, err := c.GetTask(ctx, args[0]).Await()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("%s  %s [%s]\n", t.ID, t.Title, t.Status)
				fmt.Printf("%s\n\n", t.Description)
				fmt.Printf("Partner: %s (%s)\nReward: %.2f INR = %d coins\nTime: %s\nMin level: %d\n",
					t.Partner.Name, t.Partner.Type, t.RewardINR, t.CoinValue, t.TimeRequired, t.RequiredLevel())
				for i, step := range t.Instructions {
					fmt.Printf("  %d. %s\n", i+1, step)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("remote", "", "API base URL, e.g. http://127.0.0.1:8080/v0")
	return cmd
}

func taskStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.StartTask(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("started %s; open %s\n", t.ID, t.TrackingURL)
				return nil
			})
		},
	}
}

func taskCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a task and collect its coins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CompleteTask(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.Duplicate {
					fmt.Printf("%s was already completed; no coins credited\n", res.Task.ID)
					return nil
				}
				fmt.Printf("completed %s: +%d coins (balance %d)\n", res.Task.ID, res.Awarded, res.User.Coins)
				if res.LevelUp {
					fmt.Printf("level up! you are now level %d\n", res.User.Level)
				}
				return nil
			})
		},
	}
}

func taskResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the task catalog to its initial state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Catalog.Reset(ctx); err != nil {
					return err
				}
				fmt.Println("task catalog reset")
				return nil
			})
		},
	}
}

func offerwallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offerwall",
		Short: "Offerwall providers and their tasks",
	}
	cmd.AddCommand(offerwallListCmd())
	cmd.AddCommand(offerwallShowCmd())
	cmd.AddCommand(offerwallTasksCmd())
	return cmd
}

func offerwallListCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				providers := e.Providers()
				if active {
					providers = e.Offerwalls.ActiveProviders()
				}
				if viper.GetBool("json") {
					return printJSON(providers)
				}
				tw := newTable("ID", "Name", "Description", "Active")
				for _, p := range providers {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Description, p.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only active providers")
	return cmd
}

func offerwallShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Provider(args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func offerwallTasksCmd() *cobra.Command {
	var count int
	var refresh bool
	cmd := &cobra.Command{
		Use:   "tasks <id>",
		Short: "List a provider's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.OfferwallTasks(ctx, args[0], count, refresh)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of tasks (default from config)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "regenerate instead of using cached tasks")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account and session",
		Long:  "One user is active per workspace. Login does not verify passwords.",
	}
	cmd.AddCommand(userRegisterCmd())
	cmd.AddCommand(userLoginCmd())
	cmd.AddCommand(userLogoutCmd())
	cmd.AddCommand(userShowCmd())
	cmd.AddCommand(userUpdateCmd())
	cmd.AddCommand(userProgressCmd())
	cmd.AddCommand(userReferralCmd())
	return cmd
}

func userRegisterCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Register(ctx, email, password, name)
				if err != nil {
					return err
				}
				return printUser(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func userLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Login(ctx, email, password)
				if err != nil {
					return err
				}
				return printUser(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func userLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Logout(ctx); err != nil {
					return err
				}
				fmt.Println("logged out")
				return nil
			})
		},
	}
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CurrentUser()
				if err != nil {
					return err
				}
				return printUser(u)
			})
		},
	}
}

func userUpdateCmd() *cobra.Command {
	var name, email, avatar string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.UserPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("email") {
				patch.Email = &email
			}
			if cmd.Flags().Changed("avatar") {
				patch.Avatar = &avatar
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update; pass --name, --email or --avatar")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, ok, err := e.UpdateUser(ctx, patch)
				if err != nil {
					return err
				}
				if !ok {
					return domain.ErrNotAuthenticated
				}
				return printUser(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	return cmd
}

func printUser(u domain.User) error {
	if viper.GetBool("json") {
		return printJSON(u)
	}
	tw := newTable("Field", "Value")
	tw.AppendRows([]table.Row{
		{"ID", u.ID},
		{"Name", u.Name},
		{"Email", u.Email},
		{"Level", u.Level},
		{"Coins", u.Coins},
		{"Today", u.DailyEarnings},
		{"Tasks completed", u.CompletedTasks},
		{"Referral code", u.ReferralCode},
		{"Joined", u.JoinDate},
	})
	tw.Render()
	return nil
}

func userProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show level progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Progress()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("Level %d, %d tasks completed\n", p.Current.Level, p.User.CompletedTasks)
				if p.TopTier {
					fmt.Println("top level reached")
					return nil
				}
				const width = 30
				filled := int(p.Fraction * width)
				fmt.Printf("[%s%s] %.0f%% to level %d (%d more tasks)\n",
					strings.Repeat("#", filled), strings.Repeat("-", width-filled), p.Fraction*100, p.Next.Level, p.TasksToNext)
				return nil
			})
		},
	}
}

func userReferralCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "referral",
		Short: "Show your invite link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ref, err := e.Referral()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ref)
				}
				fmt.Printf("Code: %s\nLink: %s\nYou earn %d coins for each friend who joins.\n", ref.Code, ref.URL, ref.BonusPerFriend)
				return nil
			})
		},
	}
}

func levelCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "level", Short: "Level tiers"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List level tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				levels := e.Levels()
				if viper.GetBool("json") {
					return printJSON(levels)
				}
				tw := newTable("Level", "Tasks required", "Max tasks/day", "Benefits")
				for _, l := range levels {
					tw.AppendRow(table.Row{l.Level, l.TasksRequired, l.MaxTasksPerDay, strings.Join(l.Benefits, "; ")})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Balance, ledger and withdrawals",
	}
	cmd.AddCommand(walletShowCmd())
	cmd.AddCommand(walletTransactionsCmd())
	cmd.AddCommand(walletWithdrawCmd())
	return cmd
}

func walletShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Wallet(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(w)
				}
				tw := newTable("Coins", "Value (INR)", "Today", "Earned", "Bonus", "Withdrawn", "Min withdrawal")
				tw.AppendRow(table.Row{w.Coins, w.ValueINR.StringFixed(2), w.DailyEarnings,
					w.Totals[domain.TxEarned], w.Totals[domain.TxBonus], w.Totals[domain.TxWithdrawn], w.MinWithdrawal})
				tw.Render()
				return nil
			})
		},
	}
}

func walletTransactionsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List ledger entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				txs, err := e.Transactions(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(txs)
				}
				tw := newTable("Time", "Kind", "Coins", "Source")
				for _, t := range txs {
					tw.AppendRow(table.Row{t.CreatedAt, t.Kind, t.Coins, t.Source})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 20, "number of entries")
	return cmd
}

func walletWithdrawCmd() *cobra.Command {
	var coins int
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw coins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Withdraw(ctx, coins)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(w)
				}
				fmt.Printf("withdrew %d coins (%s INR); balance %d\n", coins, w.ValueINR.StringFixed(2), w.User.Coins)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&coins, "coins", 0, "coins to withdraw")
	_ = cmd.MarkFlagRequired("coins")
	return cmd
}
