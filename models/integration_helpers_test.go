package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
)

// testFixture is the master data every flow test needs: a warehouse, a
// product, the three seed classes, and officers on both sides of the
// approval fence.
type testFixture struct {
	Warehouse   *models.Warehouse
	Wheat       *models.SeedProduct
	Breeder     *models.SeedClass
	Foundation  *models.SeedClass
	Certified   *models.SeedClass
	Storekeeper *models.User
	Manager     *models.User
	Admin       *models.User
}

// setupIntegrationDB boots mysql+redis containers, connects the config
// singletons and migrates a fresh schema. Call once per test.
func setupIntegrationDB(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "seedstore_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
}

func seedFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	warehouse, err := models.CreateWarehouse(ctx, models.NewWarehouse{Code: "W1", Name: "Main Warehouse"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	wheat, err := models.CreateSeedProduct(ctx, models.NewSeedProduct{Code: "WHT-001", Crop: "Wheat", Variety: "Yezin-1"})
	if err != nil {
		t.Fatalf("CreateSeedProduct: %v", err)
	}
	breeder, err := models.CreateSeedClass(ctx, models.NewSeedClass{Name: models.SeedClassBreeder})
	if err != nil {
		t.Fatalf("CreateSeedClass(breeder): %v", err)
	}
	foundation, err := models.CreateSeedClass(ctx, models.NewSeedClass{Name: models.SeedClassFoundation})
	if err != nil {
		t.Fatalf("CreateSeedClass(foundation): %v", err)
	}
	certified, err := models.CreateSeedClass(ctx, models.NewSeedClass{Name: models.SeedClassCertified})
	if err != nil {
		t.Fatalf("CreateSeedClass(certified): %v", err)
	}

	storekeeper, err := models.CreateUser(ctx, models.NewUser{Name: "Store Keeper", Email: "keeper@test.local", Password: "keeper-pass-1", Role: models.RoleStorekeeper})
	if err != nil {
		t.Fatalf("CreateUser(storekeeper): %v", err)
	}
	manager, err := models.CreateUser(ctx, models.NewUser{Name: "Manager", Email: "manager@test.local", Password: "manager-pass-1", Role: models.RoleManager})
	if err != nil {
		t.Fatalf("CreateUser(manager): %v", err)
	}
	admin, err := models.CreateUser(ctx, models.NewUser{Name: "Admin", Email: "admin@test.local", Password: "admin-pass-1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser(admin): %v", err)
	}

	return &testFixture{
		Warehouse:   warehouse,
		Wheat:       wheat,
		Breeder:     breeder,
		Foundation:  foundation,
		Certified:   certified,
		Storekeeper: storekeeper,
		Manager:     manager,
		Admin:       admin,
	}
}

// ctxAs builds a request context acting as the given officer.
func ctxAs(user *models.User) context.Context {
	ctx := context.Background()
	ctx = utils.SetOfficerIdInContext(ctx, user.ID)
	ctx = utils.SetOfficerNameInContext(ctx, user.Name)
	ctx = utils.SetOfficerRoleInContext(ctx, string(user.Role))
	return ctx
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("seedstore-test-redis-%d", time.Now().UnixNano())
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
	name := fmt.Sprintf("seedstore-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=seedstore_test",
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
