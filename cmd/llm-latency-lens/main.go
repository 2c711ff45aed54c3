// Command llm-latency-lens measures streaming latency and throughput
// against OpenAI- and Anthropic-shaped chat completion endpoints.
package main

import (
	"os"

	"github.com/globalbusinessadvisors/llm-latency-lens/cmd/llm-latency-lens/cli"
)

func main() {
	os.Exit(cli.Execute())
}
