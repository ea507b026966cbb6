package main

import (
	"github.com/faisworld/fais-web-sub000/cmd/handlers"
	"github.com/faisworld/fais-web-sub000/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
