package config

import "os"

// Config holds runtime settings, all overridable via environment variables.
type Config struct {
	Port              string
	DatabasePath      string
	UserServiceURL    string
	ProductServiceURL string
	OrderServiceURL   string
	AMQPURL           string
	OrderQueue        string
	JWTSecret         string
	InternalAPIKey    string
	InternalAPISecret string
}

func Load() Config {
	port := getenv("PORT", "8080")
	return Config{
		Port:              port,
		DatabasePath:      getenv("DATABASE_PATH", "orders.db"),
		UserServiceURL:    getenv("USER_SERVICE_URL", "http://service-auth:8000/api"),
		ProductServiceURL: getenv("PRODUCT_SERVICE_URL", "http://service-product:8000/api"),
		OrderServiceURL:   getenv("ORDER_SERVICE_URL", "http://localhost:"+port+"/api/v1"),
		AMQPURL:           getenv("AMQP_URL", ""),
		OrderQueue:        getenv("ORDER_QUEUE", "order_queue"),
		JWTSecret:         getenv("JWT_SECRET", "order-api-secret-key"),
		InternalAPIKey:    getenv("INTERNAL_API_KEY", "internal-api-key"),
		InternalAPISecret: getenv("INTERNAL_API_SECRET", "internal-api-secret"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
