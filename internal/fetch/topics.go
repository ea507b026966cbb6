package fetch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

// MaxTopicProposals bounds GenerateArticleTopicsFromNews.
const MaxTopicProposals = 3

var (
	aiFamily         = compileKeywordPatterns([]string{"ai", "artificial intelligence", "machine learning", "llm", "neural network", "generative"})
	blockchainFamily = compileKeywordPatterns([]string{"blockchain", "crypto", "cryptocurrency", "bitcoin", "ethereum", "defi", "smart contract", "nft", "web3", "token"})

	topicKeywords = map[core.TopicKind][]string{
		core.TopicAI:          {"artificial intelligence", "machine learning", "AI innovation", "business automation"},
		core.TopicBlockchain:  {"blockchain", "cryptocurrency", "decentralized finance", "web3"},
		core.TopicConvergence: {"AI", "blockchain", "decentralized AI", "technology convergence"},
	}
)

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ClassifyArticle reports which keyword families appear in the article's
// title or content.
func ClassifyArticle(a core.NewsArticle) (ai, blockchain bool) {
	text := strings.ToLower(a.Title + " " + a.Content)
	return matchesAny(aiFamily, text), matchesAny(blockchainFamily, text)
}

// TopicTitle renders the topic string for a proposal of kind based on a
// headline.
func TopicTitle(kind core.TopicKind, headline string) string {
	switch kind {
	case core.TopicConvergence:
		return fmt.Sprintf("AI and Blockchain Convergence: Lessons from %q", headline)
	case core.TopicBlockchain:
		return fmt.Sprintf("Blockchain Developments: What %q Means for Business", headline)
	default:
		return fmt.Sprintf("AI Industry Update: Business Implications of %q", headline)
	}
}

// GenerateArticleTopicsFromNews turns crawled articles into at most
// MaxTopicProposals topics. Articles mentioning both keyword families become
// convergence topics; articles mentioning neither are skipped.
func GenerateArticleTopicsFromNews(articles []core.NewsArticle) []core.TopicProposal {
	proposals := make([]core.TopicProposal, 0, MaxTopicProposals)
	for i := range articles {
		if len(proposals) == MaxTopicProposals {
			break
		}
		article := &articles[i]

		ai, blockchain := ClassifyArticle(*article)
		var kind core.TopicKind
		switch {
		case ai && blockchain:
			kind = core.TopicConvergence
		case ai:
			kind = core.TopicAI
		case blockchain:
			kind = core.TopicBlockchain
		default:
			continue
		}

		proposals = append(proposals, core.TopicProposal{
			Topic:         TopicTitle(kind, article.Title),
			Keywords:      append([]string(nil), topicKeywords[kind]...),
			Kind:          kind,
			SourceArticle: article,
		})
	}
	return proposals
}
