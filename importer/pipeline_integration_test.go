package importer_test

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/books_importer/config"
	"github.com/mmdatafocus/books_importer/importer"
	"github.com/mmdatafocus/books_importer/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestInvoiceImportFullSequence(t *testing.T) {
	db := setupTestDatabase(t)

	seedCustomer(t, "New Customer LLC")
	seedCustomer(t, "John Smith")
	seedCustomer(t, "White Cap")

	csvPath := writeInvoiceCSV(t, [][]string{
		// exact name match, creates order and auto-vivifies the product
		{"INV001", "01-15-2025", "New Customer LLC", "Net 30", "02-14-2025", "Open", "NEW001", "New Product", "1", "100.00", "0.00"},
		// normalized match (suffix dropped, lower case)
		{"INV002", "01-16-2025", "new customer", "", "", "paid", "NEW001", "", "2", "200.00", "10.00"},
		// comma person form
		{"INV003", "01-17-2025", "Smith, John", "", "", "closed", "WIDGET-1", "A widget", "1", "50.00", "0.00"},
		// percent qualifier form
		{"INV004", "01-18-2025", "White Cap 30%:Edmonton", "", "", "Open", "WIDGET-1", "", "3", "100.00", "0.00"},
		// no matching customer: recoverable, run still succeeds
		{"INV005", "01-19-2025", "Ghost Corp", "", "", "Open", "WIDGET-1", "", "1", "10.00", "0.00"},
	})

	pipeline := importer.NewPipeline(db, config.GetLogger(), 100)
	summary, err := pipeline.ProcessFile(csvPath)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	if !summary.Success {
		t.Fatalf("expected success, got %+v", summary)
	}
	if summary.Stats.TotalInvoices != 4 {
		t.Errorf("TotalInvoices = %d, want 4", summary.Stats.TotalInvoices)
	}
	if summary.Stats.Created != 4 {
		t.Errorf("Created = %d, want 4", summary.Stats.Created)
	}
	if summary.Stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Stats.Skipped)
	}
	if summary.Stats.FailedBatches != 0 {
		t.Errorf("FailedBatches = %d, want 0", summary.Stats.FailedBatches)
	}

	foundNotFound := false
	for _, rec := range summary.Errors {
		if rec.Category == "customer_not_found" {
			foundNotFound = true
		}
	}
	if !foundNotFound {
		t.Errorf("expected a customer_not_found error record, got %+v", summary.Errors)
	}

	// Auto-vivified product: name defaults to the code.
	product, err := models.GetProductByCode(db, "NEW001")
	if err != nil {
		t.Fatalf("GetProductByCode: %v", err)
	}
	if product.Name != "NEW001" {
		t.Errorf("product name = %q, want NEW001", product.Name)
	}
	if product.Description != "New Product" {
		t.Errorf("product description = %q, want New Product", product.Description)
	}

	// Status table: "paid" closes and pays, "closed" closes but stays unpaid.
	order2 := mustGetOrder(t, db, "INV002")
	if order2.Status != models.OrderStatusClosed || order2.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("INV002 status = %s/%s, want CLOSED/PAID", order2.Status, order2.PaymentStatus)
	}
	if !order2.TotalAmount.Equal(decimal.RequireFromString("210.00")) {
		t.Errorf("INV002 total = %s, want 210.00", order2.TotalAmount)
	}
	order3 := mustGetOrder(t, db, "INV003")
	if order3.Status != models.OrderStatusClosed || order3.PaymentStatus != models.PaymentStatusUnpaid {
		t.Errorf("INV003 status = %s/%s, want CLOSED/UNPAID", order3.Status, order3.PaymentStatus)
	}

	// The unmatched invoice left no order behind.
	if _, err := models.GetOrderByNumber(db, "INV005"); err == nil {
		t.Errorf("INV005 should not exist")
	}
}

func TestInvoiceImportUpdate(t *testing.T) {
	db := setupTestDatabase(t)
	seedCustomer(t, "Acme Widgets")

	first := writeInvoiceCSV(t, [][]string{
		{"INV100", "01-15-2025", "Acme Widgets", "", "", "Open", "W-1", "", "1", "100.00", "0.00"},
	})
	pipeline := importer.NewPipeline(db, config.GetLogger(), 100)
	summary, err := pipeline.ProcessFile(first)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if summary.Stats.Created != 1 {
		t.Fatalf("Created = %d, want 1", summary.Stats.Created)
	}

	// Re-import with a changed quantity and amount: same order row, new
	// figures, counted as updated.
	second := writeInvoiceCSV(t, [][]string{
		{"INV100", "01-15-2025", "Acme Widgets", "", "", "Open", "W-1", "", "2", "200.00", "0.00"},
	})
	pipeline = importer.NewPipeline(db, config.GetLogger(), 100)
	summary, err = pipeline.ProcessFile(second)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if summary.Stats.Updated != 1 || summary.Stats.Created != 0 {
		t.Fatalf("Updated/Created = %d/%d, want 1/0", summary.Stats.Updated, summary.Stats.Created)
	}

	order := mustGetOrder(t, db, "INV100")
	if !order.Subtotal.Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("subtotal = %s, want 200.00", order.Subtotal)
	}
	items, err := models.GetOrderItems(db, order.ID)
	if err != nil {
		t.Fatalf("GetOrderItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (update in place, no duplicate row)", len(items))
	}
	if !items[0].Quantity.Equal(decimal.RequireFromString("2")) {
		t.Errorf("quantity = %s, want 2", items[0].Quantity)
	}

	// A byte-identical re-import still counts as updated.
	pipeline = importer.NewPipeline(db, config.GetLogger(), 100)
	summary, err = pipeline.ProcessFile(second)
	if err != nil {
		t.Fatalf("third import: %v", err)
	}
	if summary.Stats.Updated != 1 {
		t.Errorf("identical re-import Updated = %d, want 1", summary.Stats.Updated)
	}
}

func TestInvoiceImportLineItemReplacement(t *testing.T) {
	db := setupTestDatabase(t)
	seedCustomer(t, "Acme Widgets")

	first := writeInvoiceCSV(t, [][]string{
		{"INV200", "01-15-2025", "Acme Widgets", "", "", "Open", "A-1", "", "1", "10.00", "0.00"},
		{"INV200", "01-15-2025", "Acme Widgets", "", "", "Open", "B-1", "", "1", "20.00", "0.00"},
	})
	pipeline := importer.NewPipeline(db, config.GetLogger(), 100)
	if _, err := pipeline.ProcessFile(first); err != nil {
		t.Fatalf("first import: %v", err)
	}

	// B-1 disappears, C-1 appears: the stored set follows the file.
	second := writeInvoiceCSV(t, [][]string{
		{"INV200", "01-15-2025", "Acme Widgets", "", "", "Open", "A-1", "", "1", "10.00", "0.00"},
		{"INV200", "01-15-2025", "Acme Widgets", "", "", "Open", "C-1", "", "1", "30.00", "0.00"},
	})
	pipeline = importer.NewPipeline(db, config.GetLogger(), 100)
	if _, err := pipeline.ProcessFile(second); err != nil {
		t.Fatalf("second import: %v", err)
	}

	order := mustGetOrder(t, db, "INV200")
	items, err := models.GetOrderItems(db, order.ID)
	if err != nil {
		t.Fatalf("GetOrderItems: %v", err)
	}
	codes := map[string]bool{}
	for _, item := range items {
		codes[item.ProductCode] = true
	}
	if len(items) != 2 || !codes["A-1"] || !codes["C-1"] || codes["B-1"] {
		t.Errorf("stored codes = %v, want exactly A-1 and C-1", codes)
	}
	if !order.Subtotal.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("subtotal = %s, want 40.00", order.Subtotal)
	}
}

func TestInvoiceImportInvalidProductCode(t *testing.T) {
	db := setupTestDatabase(t)
	seedCustomer(t, "Acme Widgets")

	csvPath := writeInvoiceCSV(t, [][]string{
		{"INV300", "01-15-2025", "Acme Widgets", "", "", "Open", "BAD CODE", "", "1", "10.00", "0.00"},
		{"INV301", "01-15-2025", "Acme Widgets", "", "", "Open", "GOOD-1", "", "1", "10.00", "0.00"},
	})
	pipeline := importer.NewPipeline(db, config.GetLogger(), 100)
	summary, err := pipeline.ProcessFile(csvPath)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	if !summary.Success {
		t.Fatalf("row errors must not fail the run: %+v", summary)
	}
	if summary.Stats.Created != 1 || summary.Stats.Skipped != 1 {
		t.Errorf("Created/Skipped = %d/%d, want 1/1", summary.Stats.Created, summary.Stats.Skipped)
	}
	// The invalid invoice wrote nothing.
	if _, err := models.GetOrderByNumber(db, "INV300"); err == nil {
		t.Errorf("INV300 should not exist")
	}
}

func setupTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "books_importer_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	return config.GetDB()
}

func seedCustomer(t *testing.T, name string) {
	t.Helper()
	_, err := models.CreateCustomer(config.GetDB(), &models.NewCustomer{Name: name})
	if err != nil {
		t.Fatalf("CreateCustomer %q: %v", name, err)
	}
}

func mustGetOrder(t *testing.T, db *gorm.DB, number string) *models.Order {
	t.Helper()
	order, err := models.GetOrderByNumber(db, number)
	if err != nil {
		t.Fatalf("GetOrderByNumber %s: %v", number, err)
	}
	return order
}

var invoiceCSVHeader = []string{
	"Invoice No", "Invoice Date", "Customer", "Terms", "Due Date", "Status",
	"Product/Service", "Product/Service Description", "Qty",
	"Product/Service  Amount", "Product/Service Sales Tax",
}

func writeInvoiceCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoices.csv")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(invoiceCSVHeader); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush csv: %v", err)
	}
	return path
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("importer-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=books_importer_test",
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
	// wait until ready
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
	// Example: "127.0.0.1:49154\n"
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
