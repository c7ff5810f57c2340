package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"user-center/config"
	"user-center/internal/model"
	dbPkg "user-center/pkg/db"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	assumeYes  bool
)

// rootCmd 用户中心运维工具
var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "user center maintenance tool",
	Example: `  # 清空用户表
  $ admin reset

  # 设置/取消管理员
  $ admin grant-admin yupi
  $ admin revoke-admin yupi`,
	SilenceUsage: true,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "clear all rows in the user table and reset auto increment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !assumeYes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout()) {
			fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
			return nil
		}
		return withDB(cmd.Context(), func(db *sql.DB) error {
			n, err := resetUsers(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d users, auto-increment reset to 1\n", n)
			return nil
		})
	},
}

var grantCmd = &cobra.Command{
	Use:   "grant-admin <userAccount>",
	Short: "grant the admin role to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd, args[0], model.AdminRole)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke-admin <userAccount>",
	Short: "revoke the admin role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd, args[0], model.DefaultRole)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file path")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompt")

	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSetRole(cmd *cobra.Command, account string, role int) error {
	return withDB(cmd.Context(), func(db *sql.DB) error {
		if err := setRole(cmd.Context(), db, account, role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s role set to %d\n", account, role)
		return nil
	})
}

func withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load(configPath)

	db, err := sql.Open("mysql", dbPkg.DSN(cfg.Database))
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	return fn(db)
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "WARNING: This operation will CLEAR ALL DATA in table [user]!\nType 'YES' to confirm: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "YES"
}

// resetUsers 清空用户表（含逻辑删除的行）并重置自增ID
func resetUsers(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM `user`")
	if err != nil {
		return 0, fmt.Errorf("clear user table: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := db.ExecContext(ctx, "ALTER TABLE `user` AUTO_INCREMENT = 1"); err != nil {
		return n, fmt.Errorf("reset auto increment: %w", err)
	}
	return n, nil
}

// setRole 修改未删除用户的角色
func setRole(ctx context.Context, db *sql.DB, account string, role int) error {
	res, err := db.ExecContext(ctx,
		"UPDATE `user` SET `userRole` = ? WHERE `userAccount` = ? AND `isDelete` = 0",
		role, account,
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n == 0 {
		// 角色未变化时MySQL同样返回0行
		var exists int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM `user` WHERE `userAccount` = ? AND `isDelete` = 0", account,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("user %q not found", account)
		}
	}
	return nil
}
