//go:build integration

package idempotency

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisClaimer_Integration_SingleWinner(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	const replicas = 8

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < replicas; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimer := NewRedisClaimer(redisClient).WithOwner(fmt.Sprintf("replica-%d", i))
			ok, err := claimer.Claim(ctx, "1187654321098765432", 3*time.Second)
			if err != nil {
				t.Errorf("Claim() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}

	ttl, err := redisClient.TTL(ctx, "blamebot:interaction:1187654321098765432").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 3*time.Second {
		t.Errorf("TTL = %v, want (0, 3s]", ttl)
	}
}

func TestSharedGuard_Integration_AcrossReplicas(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	a := NewSharedGuard(NewGuard(DefaultConfig()), NewRedisClaimer(redisClient))
	b := NewSharedGuard(NewGuard(DefaultConfig()), NewRedisClaimer(redisClient))

	ev := Event{ID: "99", Kind: KindCommand, CreatedAt: time.Now()}

	if !a.AdmitEvent(ctx, ev) {
		t.Fatal("first replica should admit the event")
	}
	if b.AdmitEvent(ctx, ev) {
		t.Error("second replica should reject the claimed event")
	}
}
