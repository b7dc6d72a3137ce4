package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/models"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
)

// Ledger posting integration scenario.
//
// Covers the persistence properties the unit tests cannot: atomic
// header+movement inserts, gap-free sequential numbering under concurrent
// posting (the advisory lock must be released on the pinned session, not the
// finished tx), cancellation reversals, and rule provenance.
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./models -run LedgerPosting -v

func TestLedgerPostingScenario(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "contable_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Prueba")
	ctx = utils.SetUsernameInContext(ctx, "prueba@local")
	ctx = utils.SetIsSuperuserInContext(ctx, false)

	company, err := models.CreateCompany(ctx, &models.NewCompany{
		Name:              "Integración SAS",
		Nit:               "900123456-7",
		TransactionPrefix: "TRX",
	})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	ctx = utils.SetCompanyIdInContext(ctx, company.ID.String())

	tercero, err := models.CreateThirdParty(ctx, &models.NewThirdParty{
		Nit:  "830012345-1",
		Name: "DISTRIBUIDORA EL PUNTO",
	})
	if err != nil {
		t.Fatalf("CreateThirdParty: %v", err)
	}

	caja, err := models.GetAccountByCode(ctx, "1105")
	if err != nil {
		t.Fatalf("fetch caja: %v", err)
	}
	gastos, err := models.GetAccountByCode(ctx, "5195")
	if err != nil {
		t.Fatalf("fetch gastos diversos: %v", err)
	}

	postEntry := func(concept string, amount decimal.Decimal) (*models.Transaction, error) {
		return models.CreateTransaction(ctx, &models.NewTransaction{
			Date:    time.Now(),
			Concept: concept,
			Movements: []*models.NewMovement{
				{AccountId: gastos.ID, ThirdPartyId: tercero.ID, Debit: amount},
				{AccountId: caja.ID, ThirdPartyId: tercero.ID, Credit: amount},
			},
		})
	}

	// Sequential numbering from the start of the series.
	for i := 1; i <= 3; i++ {
		txn, err := postEntry(fmt.Sprintf("Compra %d", i), decimal.NewFromInt(100000))
		if err != nil {
			t.Fatalf("CreateTransaction %d: %v", i, err)
		}
		want := fmt.Sprintf("TRX-%05d", i)
		if txn.Number != want {
			t.Fatalf("number = %s, want %s", txn.Number, want)
		}
	}

	// A failed creation must leave no partial movement rows behind.
	db := config.GetDB()
	var before int64
	if err := db.Model(&models.Movement{}).Count(&before).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	_, err = models.CreateTransaction(ctx, &models.NewTransaction{
		Date:    time.Now(),
		Concept: "Cuenta inexistente",
		Movements: []*models.NewMovement{
			{AccountId: 999999, ThirdPartyId: tercero.ID, Debit: decimal.NewFromInt(50000)},
			{AccountId: caja.ID, ThirdPartyId: tercero.ID, Credit: decimal.NewFromInt(50000)},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown account id")
	}
	var after int64
	if err := db.Model(&models.Movement{}).Count(&after).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if after != before {
		t.Fatalf("movement rows leaked: %d before, %d after failed create", before, after)
	}

	// Concurrent posting for the same company must produce distinct
	// consecutive numbers, and must not stall on a leaked advisory lock held
	// by another pooled connection.
	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := postEntry(fmt.Sprintf("Concurrente %d", n), decimal.NewFromInt(20000)); err != nil {
				errs <- err
			}
		}(i)
	}
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(25 * time.Second):
		t.Fatal("concurrent posting stalled, advisory lock not released")
	}
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent CreateTransaction: %v", err)
	}

	listed, err := models.GetTransactions(ctx, nil)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(listed) != 3+workers {
		t.Fatalf("transaction count = %d, want %d", len(listed), 3+workers)
	}
	seen := map[int]bool{}
	for _, txn := range listed {
		suffix := models.ParseNumberSuffix(txn.Number)
		if suffix < 1 || suffix > 3+workers {
			t.Fatalf("number %s outside the series", txn.Number)
		}
		if seen[suffix] {
			t.Fatalf("duplicate number %s in the series", txn.Number)
		}
		seen[suffix] = true
	}

	// A non-superuser cancellation posts a reversing entry with the next
	// number and links the original to it.
	victim, err := postEntry("Para anular", decimal.NewFromInt(30000))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	outcome, err := models.DeleteOrCancelTransaction(ctx, victim.ID)
	if err != nil {
		t.Fatalf("DeleteOrCancelTransaction: %v", err)
	}
	if outcome.Action != models.CancellationActionCancelled || outcome.CancellationRef == nil {
		t.Fatalf("outcome = %+v, want a cancellation with a reversal", outcome)
	}
	wantReversal := fmt.Sprintf("TRX-%05d", 3+workers+2)
	if outcome.CancellationRef.Number != wantReversal {
		t.Fatalf("reversal number = %s, want %s", outcome.CancellationRef.Number, wantReversal)
	}
	reloaded, err := models.GetTransaction(ctx, victim.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if reloaded.Status != models.TransactionStatusCancelled {
		t.Fatalf("status = %s, want Cancelled", reloaded.Status)
	}
	if reloaded.CancelledById == nil || *reloaded.CancelledById != outcome.CancellationRef.ID {
		t.Fatal("original entry not linked to its reversal")
	}

	// Rule provenance: heuristic classification seeds a system rule, manual
	// creation marks a user rule.
	if _, err := models.ClassifyExpense(ctx, "901999888-2", "TRANSPORTES DEL NORTE", decimal.NewFromInt(80000)); err != nil {
		t.Fatalf("ClassifyExpense: %v", err)
	}
	rules, err := models.GetAccountingRules(ctx, nil)
	if err != nil {
		t.Fatalf("GetAccountingRules: %v", err)
	}
	var learned *models.AccountingRule
	for _, r := range rules {
		if r.ThirdPartyNit == "901999888-2" {
			learned = r
		}
	}
	if learned == nil {
		t.Fatal("classification did not seed a rule")
	}
	if learned.CreatedByUser == nil || *learned.CreatedByUser {
		t.Fatal("heuristic rule must not be marked user-created")
	}
	manual, err := models.CreateAccountingRule(ctx, &models.NewAccountingRule{
		ThirdPartyNit:  "900555444-3",
		ThirdPartyName: "PAPELERIA CENTRAL",
		AccountId:      gastos.ID,
	})
	if err != nil {
		t.Fatalf("CreateAccountingRule: %v", err)
	}
	if manual.CreatedByUser == nil || !*manual.CreatedByUser {
		t.Fatal("manual rule must be marked user-created")
	}

	// A movement from another company cannot feed this company's rules.
	other, err := models.CreateCompany(ctx, &models.NewCompany{
		Name:              "Otra Empresa SAS",
		Nit:               "901777666-5",
		TransactionPrefix: "OTR",
	})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	otherCtx := utils.SetCompanyIdInContext(ctx, other.ID.String())
	otherGastos, err := models.GetAccountByCode(otherCtx, "5195")
	if err != nil {
		t.Fatalf("fetch gastos for second company: %v", err)
	}
	movementId := reloaded.Movements[0].ID
	if _, err := models.LearnFromEdit(otherCtx, movementId, otherGastos.ID); err == nil {
		t.Fatal("LearnFromEdit accepted a movement from another company")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("contable-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("contable-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=contable_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
