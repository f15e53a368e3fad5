package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/order-api/internal/idempotency"
	"github.com/ksred/order-api/internal/notify"
	"github.com/ksred/order-api/internal/orders"
	"github.com/ksred/order-api/internal/remote"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	numOrders    = 50
	numWorkers   = 5
	numUsers     = 20
	numProducts  = 10
	initialStock = 500
	apiAddress   = "127.0.0.1:8089"
	userAddress  = "127.0.0.1:8091"
	productAddr  = "127.0.0.1:8092"
)

// init configures the logger for the simulation with pretty printing
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
	mu         sync.Mutex
}

func (rs *routeStats) record(d time.Duration, failed bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
	if failed {
		rs.failures++
	}
}

// calculate computes min, max, mean and 95th percentile durations
func (rs *routeStats) calculate() (min, max, mean, p95 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var total time.Duration
	for _, d := range rs.durations {
		total += d
	}
	mean = total / time.Duration(len(rs.durations))
	p95 = rs.durations[(len(rs.durations)*95)/100]
	return min, max, mean, p95
}

// stubProduct is the product collaborator's in-memory state, including
// its server-side idempotency cache for reduce-stock.
type stubProduct struct {
	mu       sync.Mutex
	products map[int64]*productState
	idemKeys map[string]cachedReply
}

type productState struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int64   `json:"stock"`
}

type cachedReply struct {
	status int
	body   []byte
}

func newStubProduct() *stubProduct {
	s := &stubProduct{
		products: make(map[int64]*productState),
		idemKeys: make(map[string]cachedReply),
	}
	for i := int64(1); i <= numProducts; i++ {
		s.products[i] = &productState{
			ID:    i,
			Name:  fmt.Sprintf("Product %d", i),
			Price: float64(10+rand.Intn(90)) + 0.99,
			Stock: initialStock,
		}
	}
	return s
}

func (s *stubProduct) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.GET("/products/:id", func(c *gin.Context) {
		var id int64
		fmt.Sscanf(c.Param("id"), "%d", &id)

		s.mu.Lock()
		defer s.mu.Unlock()
		product, ok := s.products[id]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
			return
		}
		c.JSON(http.StatusOK, product)
	})

	r.PUT("/products/:id/reduce-stock", func(c *gin.Context) {
		var id int64
		fmt.Sscanf(c.Param("id"), "%d", &id)

		var req struct {
			Quantity       int64  `json:"quantity"`
			Direction      string `json:"direction"`
			IdempotencyKey string `json:"idempotency_key"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		cacheKey := fmt.Sprintf("%d:%s", id, req.IdempotencyKey)
		if req.IdempotencyKey != "" {
			if reply, ok := s.idemKeys[cacheKey]; ok {
				c.Data(reply.status, "application/json", reply.body)
				return
			}
		}

		product, ok := s.products[id]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
			return
		}

		delta := -req.Quantity
		if req.Direction == "release" {
			delta = req.Quantity
		}

		var status int
		var body []byte
		if product.Stock+delta < 0 {
			status = http.StatusUnprocessableEntity
			body, _ = json.Marshal(gin.H{
				"message":         "insufficient stock",
				"available_stock": product.Stock,
			})
		} else {
			product.Stock += delta
			status = http.StatusOK
			body, _ = json.Marshal(gin.H{
				"message":          "stock updated",
				"product":          product,
				"reduced_quantity": req.Quantity,
			})
		}

		if req.IdempotencyKey != "" {
			s.idemKeys[cacheKey] = cachedReply{status: status, body: body}
		}
		c.Data(status, "application/json", body)
	})

	return r
}

func userRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/users/:id", func(c *gin.Context) {
		var id int64
		fmt.Sscanf(c.Param("id"), "%d", &id)
		if id < 1 || id > numUsers {
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":    id,
			"name":  fmt.Sprintf("User %d", id),
			"email": fmt.Sprintf("user%d@example.com", id),
		})
	})
	return r
}

func main() {
	// Stub collaborators
	stub := newStubProduct()
	go func() {
		if err := stub.router().Run(productAddr); err != nil {
			log.Fatal().Err(err).Msg("product stub failed")
		}
	}()
	go func() {
		if err := userRouter().Run(userAddress); err != nil {
			log.Fatal().Err(err).Msg("user stub failed")
		}
	}()

	// Order API wired against the stubs
	dbPath := filepath.Join(os.TempDir(), fmt.Sprintf("order-sim-%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := db.AutoMigrate(&orders.Order{}, &idempotency.Record{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	client := remote.NewClient()
	remoteServices := remote.NewServices(client,
		"http://"+userAddress,
		"http://"+productAddr,
		"http://"+apiAddress+"/api/v1",
	)
	orderService := orders.NewService(db, remoteServices, idempotency.NewStore(db), notify.NewLogPublisher())
	orderHandlers := orders.NewGinHandlers(orderService)

	gin.SetMode(gin.ReleaseMode)
	api := gin.New()
	v1 := api.Group("/api/v1")
	v1.POST("/orders", orderHandlers.CreateOrderHandler())
	v1.GET("/orders/:order_id", orderHandlers.GetOrderHandler())
	v1.PUT("/orders/:order_id", orderHandlers.UpdateOrderHandler())
	go func() {
		if err := api.Run(apiAddress); err != nil {
			log.Fatal().Err(err).Msg("order api failed")
		}
	}()

	// Give the listeners a moment to come up
	time.Sleep(200 * time.Millisecond)

	createStats := &routeStats{name: "POST /orders"}
	updateStats := &routeStats{name: "PUT /orders/:id"}

	log.Info().Int("orders", numOrders).Int("workers", numWorkers).Msg("starting simulation")

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			httpClient := &http.Client{Timeout: 10 * time.Second}
			for range jobs {
				orderID := createOrder(httpClient, createStats)
				if orderID != "" && rand.Intn(4) == 0 {
					updateOrder(httpClient, updateStats, orderID)
				}
			}
		}()
	}

	for i := 0; i < numOrders; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report(createStats)
	report(updateStats)

	remaining := int64(0)
	stub.mu.Lock()
	for _, p := range stub.products {
		remaining += p.Stock
	}
	stub.mu.Unlock()
	log.Info().Int64("remaining_stock", remaining).Msg("simulation complete")
}

func createOrder(client *http.Client, stats *routeStats) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":    rand.Int63n(numUsers) + 1,
		"product_id": rand.Int63n(numProducts) + 1,
		"quantity":   rand.Int63n(5) + 1,
	})

	start := time.Now()
	resp, err := client.Post("http://"+apiAddress+"/api/v1/orders", "application/json", bytes.NewReader(payload))
	elapsed := time.Since(start)
	if err != nil {
		stats.record(elapsed, true)
		return ""
	}
	defer resp.Body.Close()

	failed := resp.StatusCode != http.StatusCreated
	stats.record(elapsed, failed)
	if failed {
		return ""
	}

	var envelope struct {
		Data struct {
			OrderID string `json:"order_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return ""
	}
	return envelope.Data.OrderID
}

func updateOrder(client *http.Client, stats *routeStats, orderID string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"quantity": rand.Int63n(5) + 1,
	})

	req, _ := http.NewRequest(http.MethodPut, "http://"+apiAddress+"/api/v1/orders/"+orderID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		stats.record(elapsed, true)
		return
	}
	defer resp.Body.Close()
	stats.record(elapsed, resp.StatusCode != http.StatusOK)
}

func report(stats *routeStats) {
	min, max, mean, p95 := stats.calculate()
	log.Info().
		Str("route", stats.name).
		Int("calls", stats.totalCalls).
		Int("failures", stats.failures).
		Dur("min", min).
		Dur("max", max).
		Dur("mean", mean).
		Dur("p95", p95).
		Msg("route statistics")
}
