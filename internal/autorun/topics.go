package autorun

// Topic is a candidate article subject with its SEO keywords.
type Topic struct {
	Topic    string
	Keywords []string
}

// DefaultTopics is the static topic table the driver samples from.
var DefaultTopics = []Topic{
	{
		Topic:    "How AI agents are changing enterprise workflows",
		Keywords: []string{"AI agents", "enterprise automation", "workflow", "LLM"},
	},
	{
		Topic:    "Practical uses of large language models in customer support",
		Keywords: []string{"large language models", "customer support", "chatbots", "AI"},
	},
	{
		Topic:    "Smart contract security: lessons from recent exploits",
		Keywords: []string{"smart contracts", "security audit", "blockchain", "DeFi"},
	},
	{
		Topic:    "Tokenization of real-world assets explained",
		Keywords: []string{"tokenization", "real-world assets", "blockchain", "web3"},
	},
	{
		Topic:    "Computer vision for quality control in manufacturing",
		Keywords: []string{"computer vision", "quality control", "manufacturing", "machine learning"},
	},
	{
		Topic:    "Retrieval-augmented generation for company knowledge bases",
		Keywords: []string{"RAG", "knowledge base", "vector search", "LLM"},
	},
	{
		Topic:    "Layer 2 scaling solutions and what they mean for businesses",
		Keywords: []string{"layer 2", "Ethereum", "scalability", "blockchain"},
	},
	{
		Topic:    "Decentralized identity and the future of digital trust",
		Keywords: []string{"decentralized identity", "self-sovereign identity", "web3", "privacy"},
	},
	{
		Topic:    "Combining AI and blockchain for transparent supply chains",
		Keywords: []string{"AI", "blockchain", "supply chain", "traceability"},
	},
	{
		Topic:    "Generative AI for marketing content: opportunities and risks",
		Keywords: []string{"generative AI", "marketing", "content creation", "AI ethics"},
	},
}
