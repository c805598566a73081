package store

import (
	"math"
	"sort"

	"github.com/Aman-CERP/amandocs/internal/analysis"
)

// Posting records one document's occurrences of a term.
type Posting struct {
	Doc       int
	Freq      int
	Positions []int
}

// PostingList is every posting for a term, ordered by document.
type PostingList struct {
	Term     string
	Postings []Posting
}

// PostingBuilder accumulates postings document by document.
type PostingBuilder struct {
	lists   map[string]*PostingList
	docLens []int
}

// NewPostingBuilder creates a builder for numDocs documents.
func NewPostingBuilder(numDocs int) *PostingBuilder {
	return &PostingBuilder{
		lists:   make(map[string]*PostingList),
		docLens: make([]int, numDocs),
	}
}

// Add indexes the tokens of document doc. Documents must be added in
// increasing order so posting lists stay sorted.
func (b *PostingBuilder) Add(doc int, tokens []analysis.Token) {
	b.docLens[doc] = len(tokens)

	byTerm := make(map[string][]int)
	order := make([]string, 0)
	for _, tok := range tokens {
		if _, ok := byTerm[tok.Term]; !ok {
			order = append(order, tok.Term)
		}
		byTerm[tok.Term] = append(byTerm[tok.Term], tok.Position)
	}

	for _, term := range order {
		positions := byTerm[term]
		list, ok := b.lists[term]
		if !ok {
			list = &PostingList{Term: term}
			b.lists[term] = list
		}
		list.Postings = append(list.Postings, Posting{Doc: doc, Freq: len(positions), Positions: positions})
	}
}

// Build returns the posting lists sorted by term and the per-document lengths.
func (b *PostingBuilder) Build() ([]PostingList, []int) {
	lists := make([]PostingList, 0, len(b.lists))
	for _, l := range b.lists {
		lists = append(lists, *l)
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].Term < lists[j].Term })
	return lists, b.docLens
}

// PostingIndex answers BM25 queries over a fixed set of posting lists.
type PostingIndex struct {
	config    BM25Config
	lists     []PostingList
	terms     map[string]int
	docLens   []int
	avgDocLen float64
}

// NewPostingIndex wraps built posting lists for querying.
func NewPostingIndex(lists []PostingList, docLens []int, config BM25Config) *PostingIndex {
	if config.K1 == 0 && config.B == 0 {
		config = DefaultBM25Config()
	}
	idx := &PostingIndex{
		config:  config,
		lists:   lists,
		terms:   make(map[string]int, len(lists)),
		docLens: docLens,
	}
	for i, l := range lists {
		idx.terms[l.Term] = i
	}

	total := 0
	for _, n := range docLens {
		total += n
	}
	if len(docLens) > 0 {
		idx.avgDocLen = float64(total) / float64(len(docLens))
	}
	return idx
}

// NumDocs returns the number of indexed documents.
func (idx *PostingIndex) NumDocs() int {
	return len(idx.docLens)
}

// NumTerms returns the vocabulary size.
func (idx *PostingIndex) NumTerms() int {
	return len(idx.lists)
}

// DocFreq returns how many documents contain term.
func (idx *PostingIndex) DocFreq(term string) int {
	if i, ok := idx.terms[term]; ok {
		return len(idx.lists[i].Postings)
	}
	return 0
}

// IDF is the BM25 inverse document frequency, always non-negative.
func (idx *PostingIndex) IDF(term string) float64 {
	n := float64(len(idx.docLens))
	df := float64(idx.DocFreq(term))
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// Score computes BM25 for every document containing at least one of terms.
// allow, when non-nil, excludes documents before scoring.
func (idx *PostingIndex) Score(terms []string, allow func(doc int) bool) []LexicalHit {
	if len(terms) == 0 || len(idx.docLens) == 0 {
		return nil
	}

	k1, b := idx.config.K1, idx.config.B
	hits := make(map[int]*LexicalHit)

	for _, term := range terms {
		i, ok := idx.terms[term]
		if !ok {
			continue
		}
		idf := idx.IDF(term)
		for _, p := range idx.lists[i].Postings {
			if allow != nil && !allow(p.Doc) {
				continue
			}
			norm := 1.0
			if idx.avgDocLen > 0 {
				norm = 1 - b + b*float64(idx.docLens[p.Doc])/idx.avgDocLen
			}
			tf := float64(p.Freq)
			score := idf * tf * (k1 + 1) / (tf + k1*norm)

			h, ok := hits[p.Doc]
			if !ok {
				h = &LexicalHit{Doc: p.Doc}
				hits[p.Doc] = h
			}
			h.Score += score
			h.MatchedTerms = append(h.MatchedTerms, term)
		}
	}

	out := make([]LexicalHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Doc < out[j].Doc
	})
	return out
}

// Positions returns the positions of term in doc, or nil.
func (idx *PostingIndex) Positions(term string, doc int) []int {
	i, ok := idx.terms[term]
	if !ok {
		return nil
	}
	postings := idx.lists[i].Postings
	j := sort.Search(len(postings), func(k int) bool { return postings[k].Doc >= doc })
	if j < len(postings) && postings[j].Doc == doc {
		return postings[j].Positions
	}
	return nil
}

// HasPhrase reports whether doc contains the query tokens with the same
// relative spacing they have in the query.
func (idx *PostingIndex) HasPhrase(doc int, query []analysis.Token) bool {
	if len(query) < 2 {
		return false
	}

	sets := make([]map[int]struct{}, len(query))
	for i, tok := range query {
		positions := idx.Positions(tok.Term, doc)
		if len(positions) == 0 {
			return false
		}
		sets[i] = make(map[int]struct{}, len(positions))
		for _, p := range positions {
			sets[i][p] = struct{}{}
		}
	}

	for start := range sets[0] {
		matched := true
		for i := 1; i < len(query); i++ {
			want := start + query[i].Position - query[0].Position
			if _, ok := sets[i][want]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
