package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/killallgit/voxscript/internal/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage database migrations for VoxScript.

The database holds job history and, with the sqlite archive, saved
documents. Tables are managed with GORM auto-migration.

Available subcommands:
  up      - Create or update every table
  down    - Drop tables, newest first
  status  - Show which tables exist`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long: `Apply all pending database migrations.

Every table the service owns is created if missing and altered to match
the current models. Existing rows are kept.`,
	RunE: runMigrateUp,
}

// migrateDownCmd drops tables
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop migrated tables",
	Long: `Drop tables owned by the service, newest first.

All rows in the dropped tables are lost.`,
	RunE: runMigrateDown,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of database migrations.

Each table the service owns is listed as applied or pending.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateDownCmd.Flags().Int("steps", 1, "number of tables to drop (0 = all)")
	migrateDownCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func openDatabase() (*database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, t := range tableStatus(db) {
			if !t.exists {
				fmt.Fprintf(out, "  would create %s\n", t.name)
			}
		}
		return nil
	}

	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(database.Models()))
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps, _ := cmd.Flags().GetInt("steps")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	targets := dropOrder(tableStatus(db), steps)
	if len(targets) == 0 {
		fmt.Fprintln(out, "Nothing to drop")
		return nil
	}

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, t := range targets {
			fmt.Fprintf(out, "  would drop %s\n", t.name)
		}
		return nil
	}

	if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("WARNING: This will drop %d table(s). Continue? (y/N): ", len(targets))) {
		fmt.Fprintln(out, "Migration rollback cancelled")
		return nil
	}

	for _, t := range targets {
		if err := db.Migrator().DropTable(t.model); err != nil {
			return fmt.Errorf("failed to drop %s: %w", t.name, err)
		}
		fmt.Fprintf(out, "Dropped %s\n", t.name)
	}
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	for _, t := range tableStatus(db) {
		state := "pending"
		if t.exists {
			state = "applied"
		}
		fmt.Fprintf(out, "  %-30s %s\n", t.name, state)
	}
	return nil
}

type table struct {
	name   string
	model  any
	exists bool
}

func tableStatus(db *database.DB) []table {
	models := database.Models()
	tables := make([]table, 0, len(models))
	for _, m := range models {
		name := fmt.Sprintf("%T", m)
		stmt := &gorm.Statement{DB: db.DB}
		if err := stmt.Parse(m); err == nil {
			name = stmt.Schema.Table
		}
		tables = append(tables, table{
			name:   name,
			model:  m,
			exists: db.Migrator().HasTable(m),
		})
	}
	return tables
}

// dropOrder returns up to steps existing tables, newest first
func dropOrder(tables []table, steps int) []table {
	var out []table
	for i := len(tables) - 1; i >= 0; i-- {
		if !tables[i].exists {
			continue
		}
		out = append(out, tables[i])
		if steps > 0 && len(out) == steps {
			break
		}
	}
	return out
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	var response string
	_, _ = fmt.Fscanln(in, &response)
	return response == "y" || response == "Y"
}
