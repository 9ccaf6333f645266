package main

import (
	"spavail-backend/cmd/spa-cli/commands"
	"spavail-backend/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
