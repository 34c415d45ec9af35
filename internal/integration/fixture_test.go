// Package integration exercises the snapshot, search engine, MCP server and
// reloader together against snapshots written to disk.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/store"
)

const fixtureDims = 128

// corpus is a small slice of a BD+C reference guide: three credits, with a
// near-duplicate requirements passage under EA-p2 and several sections each.
func corpus() []*store.Chunk {
	return []*store.Chunk{
		{
			ChunkID: "ea-p2-req-1", CreditID: "EA-p2", CreditCode: "EAp2", CreditName: "Minimum Energy Performance",
			Category: "Energy and Atmosphere", Section: store.SectionRequirements, DocType: store.DocTypePrerequisite,
			PageStart: 12, PageEnd: 13, SourceDocument: "bdc-guide.pdf",
			Text: "Demonstrate an improvement of 5 percent for new construction in the proposed building performance rating compared with the baseline building performance rating.",
		},
		{
			ChunkID: "ea-p2-req-2", CreditID: "EA-p2", CreditCode: "EAp2", CreditName: "Minimum Energy Performance",
			Category: "Energy and Atmosphere", Section: store.SectionRequirements, DocType: store.DocTypePrerequisite,
			PageStart: 12, PageEnd: 13, SourceDocument: "bdc-guide.pdf",
			Text: "Demonstrate an improvement of 5 percent for new construction in the proposed building performance rating compared with the baseline building performance rating.",
		},
		{
			ChunkID: "ea-p2-intent", CreditID: "EA-p2", CreditCode: "EAp2", CreditName: "Minimum Energy Performance",
			Category: "Energy and Atmosphere", Section: store.SectionIntent, DocType: store.DocTypePrerequisite,
			PageStart: 11, PageEnd: 11, SourceDocument: "bdc-guide.pdf",
			Text: "To reduce the environmental and economic harms of excessive energy use by achieving a minimum level of energy efficiency.",
		},
		{
			ChunkID: "ea-p2-calc", CreditID: "EA-p2", CreditCode: "EAp2", CreditName: "Minimum Energy Performance",
			Category: "Energy and Atmosphere", Section: store.SectionCalc, DocType: store.DocTypeGuide,
			PageStart: 20, PageEnd: 22, SourceDocument: "bdc-guide.pdf",
			Text: "Whole building energy simulation following ASHRAE 90.1 Appendix G compares proposed and baseline annual energy cost.",
		},
		{
			ChunkID: "ea-c2-req", CreditID: "EA-c2", CreditCode: "EAc2", CreditName: "Optimize Energy Performance",
			Category: "Energy and Atmosphere", Section: store.SectionRequirements, DocType: store.DocTypeCredit,
			PageStart: 30, PageEnd: 31, SourceDocument: "bdc-guide.pdf",
			Text: "Establish an energy performance target and demonstrate a percentage improvement in the proposed building performance rating.",
		},
		{
			ChunkID: "we-c1-req", CreditID: "WE-c1", CreditCode: "WEc1", CreditName: "Outdoor Water Use Reduction",
			Category: "Water Efficiency", Section: store.SectionRequirements, DocType: store.DocTypeCredit,
			PageStart: 40, PageEnd: 40, SourceDocument: "bdc-guide.pdf",
			Text: "Reduce outdoor water use through plant species selection and irrigation system efficiency as calculated against the baseline.",
		},
		{
			ChunkID: "we-c1-doc", CreditID: "WE-c1", CreditCode: "WEc1", CreditName: "Outdoor Water Use Reduction",
			Category: "Water Efficiency", Section: store.SectionDocumentation, DocType: store.DocTypeForm,
			PageStart: 42, PageEnd: 42, SourceDocument: "bdc-forms.pdf",
			Text: "Upload the landscape plan and the water budget calculator output.",
		},
		{
			ChunkID: "mr-c2-req", CreditID: "MR-c2", CreditCode: "MRc2", CreditName: "Building Product Disclosure and Optimization",
			Category: "Materials and Resources", Section: store.SectionRequirements, DocType: store.DocTypeCredit,
			PageStart: 60, PageEnd: 61, SourceDocument: "bdc-guide.pdf",
			Text: "Use at least 20 different permanently installed products sourced from at least five manufacturers that have environmental product declarations.",
		},
	}
}

func credits() []store.Credit {
	return []store.Credit{
		{CreditID: "EA-p2", Code: "EAp2", Name: "Minimum Energy Performance", Category: "Energy and Atmosphere"},
		{CreditID: "EA-c2", Code: "EAc2", Name: "Optimize Energy Performance", Category: "Energy and Atmosphere", PointsMin: 1, PointsMax: 18},
		{CreditID: "WE-c1", Code: "WEc1", Name: "Outdoor Water Use Reduction", Category: "Water Efficiency", PointsMin: 1, PointsMax: 2},
		{CreditID: "MR-c2", Code: "MRc2", Name: "Building Product Disclosure and Optimization", Category: "Materials and Resources", PointsMin: 1, PointsMax: 2},
	}
}

// writeCorpus embeds the corpus with the static embedder and writes it to
// dir as generation.
func writeCorpus(t *testing.T, dir, generation string) embed.Embedder {
	t.Helper()
	ctx := context.Background()
	e := embed.NewStaticEmbedder(fixtureDims)

	chunks := corpus()
	for _, c := range chunks {
		v, err := e.Embed(ctx, c.EnrichedText())
		require.NoError(t, err)
		c.Embedding = v
	}

	m := snapshot.Manifest{
		Generation:     generation,
		EmbeddingModel: e.ModelName(),
		Dimensions:     fixtureDims,
		RatingSystem:   "BD+C",
		Version:        "v4.1",
	}
	require.NoError(t, snapshot.Write(ctx, dir, m, chunks, credits()))
	return e
}
