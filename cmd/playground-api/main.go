package main

import (
	"flag"
	"fmt"

	"github.com/bbernhard/mnist-playground/api"
	"github.com/bbernhard/mnist-playground/store"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetLevel(log.DebugLevel)

	releaseMode := flag.Bool("release", false, "Run in release mode")
	redisAddress := flag.String("redis-address", ":6379", "Address to the Redis server")
	redisMaxConnections := flag.Int("redis-max-connections", 50, "Max connections to Redis")
	listen := flag.String("listen", ":8081", "Address the API listens on")

	flag.Parse()
	if *releaseMode {
		fmt.Printf("[Main] Starting gin in release mode!\n")
		gin.SetMode(gin.ReleaseMode)
	}

	redisPool := store.NewPool(*redisAddress, *redisMaxConnections)
	defer redisPool.Close()

	router := api.NewRouter(store.New(redisPool))

	log.Debug("[Main] Listening on ", *listen)
	if err := router.Run(*listen); err != nil {
		log.Fatal("[Main] Couldn't start server: ", err.Error())
	}
}
