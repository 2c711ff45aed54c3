package providers

// pricePerMillion is (input, output) USD price per one million tokens.
type pricePerMillion struct {
	input  float64
	output float64
}

// openAIPricing holds published per-1M-token pricing as of late 2024.
var openAIPricing = map[string]pricePerMillion{
	"gpt-4o":                   {2.50, 10.0},
	"gpt-4o-2024-08-06":        {2.50, 10.0},
	"gpt-4o-2024-05-13":        {2.50, 10.0},
	"gpt-4o-mini":              {0.15, 0.60},
	"gpt-4o-mini-2024-07-18":   {0.15, 0.60},
	"gpt-4-turbo":              {10.0, 30.0},
	"gpt-4-turbo-2024-04-09":   {10.0, 30.0},
	"gpt-4-turbo-preview":      {10.0, 30.0},
	"gpt-4":                    {30.0, 60.0},
	"gpt-4-32k":                {60.0, 120.0},
	"gpt-3.5-turbo":            {0.50, 1.50},
	"gpt-3.5-turbo-0125":       {0.50, 1.50},
	"gpt-3.5-turbo-instruct":   {1.50, 2.0},
}

// openAIModels is the order SupportedModels() reports, grouped by
// family, matching the table above.
var openAIModels = []string{
	"gpt-4o", "gpt-4o-2024-08-06", "gpt-4o-2024-05-13",
	"gpt-4o-mini", "gpt-4o-mini-2024-07-18",
	"gpt-4-turbo", "gpt-4-turbo-2024-04-09", "gpt-4-turbo-preview",
	"gpt-4", "gpt-4-32k",
	"gpt-3.5-turbo", "gpt-3.5-turbo-0125", "gpt-3.5-turbo-instruct",
}

// anthropicPricing holds published per-1M-token pricing as of late 2024.
var anthropicPricing = map[string]pricePerMillion{
	"claude-3-5-sonnet-20241022": {3.0, 15.0},
	"claude-3-5-sonnet-20240620": {3.0, 15.0},
	"claude-3-5-haiku-20241022":  {0.80, 4.0},
	"claude-3-opus-20240229":     {15.0, 75.0},
	"claude-3-sonnet-20240229":   {3.0, 15.0},
	"claude-3-haiku-20240307":    {0.25, 1.25},
}

var anthropicModels = []string{
	"claude-3-5-sonnet-20241022", "claude-3-5-sonnet-20240620",
	"claude-3-5-haiku-20241022",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

// googlePricing holds published per-1M-token Gemini pricing as of late 2024.
var googlePricing = map[string]pricePerMillion{
	"gemini-1.5-pro":          {1.25, 5.0},
	"gemini-1.5-pro-001":      {1.25, 5.0},
	"gemini-1.5-pro-002":      {1.25, 5.0},
	"gemini-1.5-flash":        {0.075, 0.30},
	"gemini-1.5-flash-001":    {0.075, 0.30},
	"gemini-1.5-flash-002":    {0.075, 0.30},
	"gemini-1.5-flash-8b":     {0.0375, 0.15},
	"gemini-1.5-flash-8b-001": {0.0375, 0.15},
	"gemini-1.0-pro":          {0.50, 1.50},
	"gemini-1.0-pro-001":      {0.50, 1.50},
	"gemini-1.0-pro-002":      {0.50, 1.50},
}

var googleModels = []string{
	"gemini-1.5-pro", "gemini-1.5-pro-001", "gemini-1.5-pro-002",
	"gemini-1.5-flash", "gemini-1.5-flash-001", "gemini-1.5-flash-002",
	"gemini-1.5-flash-8b", "gemini-1.5-flash-8b-001",
	"gemini-1.0-pro", "gemini-1.0-pro-001", "gemini-1.0-pro-002",
}

func calculateCost(pricing map[string]pricePerMillion, model string, inputTokens, outputTokens uint64) (float64, bool) {
	price, ok := pricing[model]
	if !ok {
		return 0, false
	}
	inputCost := float64(inputTokens) / 1_000_000.0 * price.input
	outputCost := float64(outputTokens) / 1_000_000.0 * price.output
	return inputCost + outputCost, true
}
