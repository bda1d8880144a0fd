package main

import (
	"context"
	"log"

	_ "github.com/Bilz97/UConnectChat"
	"github.com/Bilz97/UConnectChat/config"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		log.Fatalf("config.Load: %v\n", err)
	}
	log.Printf("Started on port %s\n", cfg.Port)

	if err := funcframework.Start(cfg.Port); err != nil {
		log.Fatalf("funcframework.Start: %v\n", err)
	}

	log.Println("Done")
}
