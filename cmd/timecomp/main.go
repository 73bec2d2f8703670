/*
main.go - Monthly payroll entry point

PURPOSE:
  Computes and stores an employee's salary statement for a month, then
  prints the breakdown. The same engine wiring backs tests and any future
  transport layer; this binary is the batch/operator surface.

COMMAND-LINE FLAGS:
  -db        SQLite database path (default: timecomp.db, ":memory:" works)
  -config    Optional YAML policy override file
  -employee  Employee identifier (required)
  -year      Statement year (default: current year)
  -month     Statement month 1..12 (default: current month)

ENVIRONMENT:
  A .env file is loaded if present. TIMECOMP_DB and TIMECOMP_CONFIG act as
  defaults for -db and -config.

EXAMPLES:
  # Current month for one employee
  ./timecomp -employee=emp-042

  # Specific month against a shared database with a policy override
  ./timecomp -db=./data/timecomp.db -config=policy.yaml -employee=emp-042 -year=2026 -month=7

SEE ALSO:
  - engine/engine.go: dependency wiring
  - payroll/calculator.go: the statement formulas
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/timecomp/engine"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/payroll"
	"github.com/warp/timecomp/policy"
	"github.com/warp/timecomp/store/sqlite"
)

func main() {
	// .env is optional; flags still win over environment defaults.
	_ = godotenv.Load()

	now := time.Now()
	dbPath := flag.String("db", envOr("TIMECOMP_DB", "timecomp.db"), "SQLite database path")
	configPath := flag.String("config", os.Getenv("TIMECOMP_CONFIG"), "YAML policy override file")
	employee := flag.String("employee", "", "employee identifier")
	year := flag.Int("year", now.Year(), "statement year")
	month := flag.Int("month", int(now.Month()), "statement month (1..12)")
	flag.Parse()

	if *employee == "" {
		flag.Usage()
		log.Fatal("missing required -employee flag")
	}

	settings, err := policy.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load policy config: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	eng := engine.NewSQLite(db, settings, nil)

	ctx := context.Background()
	statement, err := eng.Payroll.CalculateAndStore(ctx, ledger.EmployeeID(*employee), *year, time.Month(*month))
	if err != nil {
		log.Fatalf("Failed to calculate salary: %v", err)
	}

	printStatement(statement)
}

func printStatement(s payroll.Statement) {
	fmt.Printf("Salary statement %d-%02d for %s\n", s.Year, int(s.Month), s.EmployeeID)
	fmt.Printf("  work days        %d\n", s.WorkStats.WorkDays)
	fmt.Printf("  total hours      %s\n", s.WorkStats.TotalHours.StringFixed(2))
	fmt.Printf("  overtime hours   %s\n", s.WorkStats.OvertimeHours.StringFixed(2))
	fmt.Printf("  late arrivals    %d\n", s.WorkStats.LateCount)
	fmt.Println()
	fmt.Printf("  base salary      %s\n", s.BaseSalary.StringFixed(2))
	fmt.Printf("  hourly pay       %s\n", s.HourlyPay.StringFixed(2))
	fmt.Printf("  overtime pay     %s\n", s.OvertimePay.StringFixed(2))
	fmt.Printf("  bonus            %s\n", s.Bonus.StringFixed(2))
	fmt.Printf("  gross            %s\n", s.Gross.StringFixed(2))
	fmt.Println()
	fmt.Printf("  deductions       %s\n", s.Deductions.StringFixed(2))
	fmt.Printf("  late penalty     %s\n", s.LatePenalty.StringFixed(2))
	fmt.Printf("  net              %s\n", s.Net.StringFixed(2))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
