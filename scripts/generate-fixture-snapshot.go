//go:build ignore

// Package main generates a synthetic LEED snapshot for local serving and load testing.
// Usage: go run scripts/generate-fixture-snapshot.go -credits 60 -output testdata/snapshot
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/store"
)

var (
	numCredits = flag.Int("credits", 60, "Number of credits to generate")
	outputDir  = flag.String("output", "testdata/snapshot", "Snapshot directory")
	dims       = flag.Int("dims", embed.DefaultDimensions, "Static embedding dimensions")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

type category struct {
	prefix string
	name   string
	topics []string
}

var categories = []category{
	{"EA", "Energy and Atmosphere", []string{"energy performance", "commissioning", "refrigerant management", "renewable energy", "metering", "demand response"}},
	{"WE", "Water Efficiency", []string{"outdoor water use", "indoor water use", "cooling tower water", "water metering"}},
	{"MR", "Materials and Resources", []string{"product disclosure", "construction waste", "life-cycle impact", "storage of recyclables"}},
	{"EQ", "Indoor Environmental Quality", []string{"indoor air quality", "daylight", "thermal comfort", "acoustic performance", "low-emitting materials"}},
	{"SS", "Sustainable Sites", []string{"rainwater management", "heat island reduction", "light pollution", "site assessment"}},
	{"LT", "Location and Transportation", []string{"bicycle facilities", "access to transit", "reduced parking footprint", "electric vehicles"}},
}

// Section text templates; %s is the topic.
var sections = []struct {
	section store.Section
	docType store.DocType
	text    string
}{
	{store.SectionIntent, store.DocTypeCredit, "To reduce the environmental harms associated with %s and promote better building practice."},
	{store.SectionRequirements, store.DocTypeCredit, "Projects must demonstrate compliance for %s using the established baseline and meet the minimum threshold for the rating system."},
	{store.SectionThresholds, store.DocTypeCredit, "Points are awarded for %s according to the percentage improvement over the baseline: 10%% for one point, 20%% for two points."},
	{store.SectionDocumentation, store.DocTypeForm, "Upload calculations and narrative describing %s, including the responsible party and supporting drawings."},
	{store.SectionCalc, store.DocTypeGuide, "Calculate %s by comparing the design case with the baseline case over the full reporting period."},
	{store.SectionDefinitions, store.DocTypeGuide, "Definitions used for %s: baseline, design case, regularly occupied space."},
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	e := embed.NewStaticEmbedder(*dims)

	var (
		chunks  []*store.Chunk
		credits []store.Credit
		page    = 1
	)

	for i := 0; i < *numCredits; i++ {
		cat := categories[i%len(categories)]
		topic := cat.topics[(i/len(categories))%len(cat.topics)]
		prerequisite := i < len(categories)

		kind, docType := "c", store.DocTypeCredit
		if prerequisite {
			kind, docType = "p", store.DocTypePrerequisite
		}
		n := i/len(categories) + 1
		creditID := fmt.Sprintf("%s-%s%d", cat.prefix, kind, n)
		code := fmt.Sprintf("%s%s%d", cat.prefix, kind, n)
		name := fmt.Sprintf("%s %s", titleCase(topic), []string{"Reduction", "Management", "Optimization", "Assessment"}[rng.Intn(4)])

		credit := store.Credit{CreditID: creditID, Code: code, Name: name, Category: cat.name}
		if !prerequisite {
			credit.PointsMin = 1
			credit.PointsMax = 1 + rng.Intn(5)
		}
		credits = append(credits, credit)

		for j, s := range sections {
			span := 1 + rng.Intn(2)
			dt := s.docType
			if s.docType == store.DocTypeCredit {
				dt = docType
			}
			c := &store.Chunk{
				ChunkID:        fmt.Sprintf("%s-%s-%d", creditID, s.section, j),
				CreditID:       creditID,
				CreditCode:     code,
				CreditName:     name,
				Category:       cat.name,
				Section:        s.section,
				DocType:        dt,
				PageStart:      page,
				PageEnd:        page + span - 1,
				SourceDocument: "leed-v4.1-bdc-synthetic.pdf",
				Version:        "v4.1",
				RatingSystem:   "BD+C",
				Text:           fmt.Sprintf(s.text, topic),
			}
			page += span

			v, err := e.Embed(ctx, c.EnrichedText())
			if err != nil {
				fmt.Fprintf(os.Stderr, "embed %s: %v\n", c.ChunkID, err)
				os.Exit(1)
			}
			c.Embedding = v
			chunks = append(chunks, c)
		}
	}

	manifest := snapshot.Manifest{
		Generation:     fmt.Sprintf("synthetic-%d", time.Now().Unix()),
		EmbeddingModel: e.ModelName(),
		Dimensions:     e.Dimensions(),
		CreatedAt:      time.Now().UTC(),
		RatingSystem:   "BD+C",
		Version:        "v4.1",
	}
	if err := snapshot.Write(ctx, *outputDir, manifest, chunks, credits); err != nil {
		fmt.Fprintf(os.Stderr, "write snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d credits, %d chunks in %s (generation %s)\n",
		len(credits), len(chunks), *outputDir, manifest.Generation)
}

func titleCase(s string) string {
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		upper = c == ' ' || c == '-'
	}
	return string(b)
}
