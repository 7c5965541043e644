package conflate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"

	randomforest "github.com/malaschitz/randomForest"

	"github.com/poi-conflation/internal/records"
)

// ErrInsufficientClasses signals that an attribute has fewer than two label
// classes and its model is simply not trained.
var ErrInsufficientClasses = errors.New("fewer than two label classes present")

// Trainer fits per-attribute source classifiers from places whose values can
// be labeled against ground truth.
type Trainer struct {
	Priority    *records.Priority
	Trees       int
	HoldoutFrac float64
	Seed        int64
}

// NewTrainer creates a trainer with the standard settings.
func NewTrainer(priority *records.Priority) *Trainer {
	if priority == nil {
		priority = records.DefaultPriority()
	}
	return &Trainer{Priority: priority, Trees: 300, HoldoutFrac: 0.2, Seed: 42}
}

// FeatureImportance is one row of the diagnostic importance table.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// TrainReport carries diagnostic training output. Downstream logic never
// consumes it.
type TrainReport struct {
	Attribute        records.Attribute
	LabeledRows      int
	ClassCounts      map[records.Source]int
	BalancedPerClass int
	HoldoutRows      int
	HoldoutAccuracy  float64
	Importances      []FeatureImportance
}

// Train builds labeled feature rows for one attribute, balances the classes,
// fits a random forest and reports hold-out accuracy with permutation
// feature importances.
func (tr *Trainer) Train(attr records.Attribute, triplets []records.TripletRow, lookup RecordLookup, truth []records.GroundTruth) (*Model, *TrainReport, error) {
	fs := NewFeatureSet(attr, tr.Priority)
	truthByPlace := make(map[string]records.GroundTruth, len(truth))
	for _, gt := range truth {
		truthByPlace[gt.PlaceID] = gt
	}

	// Label rows: only exact truth matches train; everything else is
	// excluded rather than forming an unknown class.
	var vectors [][]float64
	var labels []records.Source
	classCounts := make(map[records.Source]int)
	for i := range triplets {
		gt, ok := truthByPlace[triplets[i].PlaceID]
		if !ok {
			continue
		}
		truthValue := fs.TruthValue(gt)
		label, ok := fs.Label(&triplets[i], lookup, truthValue)
		if !ok {
			continue
		}
		vectors = append(vectors, fs.Vector(&triplets[i], lookup, truthValue, true))
		labels = append(labels, label)
		classCounts[label]++
	}

	if len(classCounts) < 2 {
		return nil, nil, fmt.Errorf("attribute %s: %w", attr, ErrInsufficientClasses)
	}

	classes := tr.encodeClasses(classCounts)
	classIndex := make(map[records.Source]int, len(classes))
	for i, s := range classes {
		classIndex[s] = i
	}

	rng := rand.New(rand.NewSource(tr.Seed))

	// Resample every class (with replacement) to the smallest class size so
	// the forest sees no majority-class bias.
	minCount := -1
	for _, n := range classCounts {
		if minCount < 0 || n < minCount {
			minCount = n
		}
	}
	byClass := make(map[records.Source][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	var balancedX [][]float64
	var balancedY []int
	for _, s := range classes {
		rows := byClass[s]
		for k := 0; k < minCount; k++ {
			idx := rows[rng.Intn(len(rows))]
			balancedX = append(balancedX, vectors[idx])
			balancedY = append(balancedY, classIndex[s])
		}
	}

	perm := rng.Perm(len(balancedX))
	holdoutN := int(float64(len(balancedX)) * tr.HoldoutFrac)
	var trainX, holdX [][]float64
	var trainY, holdY []int
	for i, p := range perm {
		if i < holdoutN {
			holdX = append(holdX, balancedX[p])
			holdY = append(holdY, balancedY[p])
		} else {
			trainX = append(trainX, balancedX[p])
			trainY = append(trainY, balancedY[p])
		}
	}
	if len(holdX) == 0 { // Tiny training sets: evaluate on the fit data.
		holdX, holdY = trainX, trainY
	}

	trees := tr.Trees
	if trees <= 0 {
		trees = 300
	}
	model := &Model{
		Attribute:    attr,
		FeatureNames: fs.Names(),
		Classes:      classes,
	}
	model.Forest = randomforest.Forest{}
	model.Forest.Data = randomforest.ForestData{X: trainX, Class: trainY}
	model.Forest.Train(trees)

	report := &TrainReport{
		Attribute:        attr,
		LabeledRows:      len(labels),
		ClassCounts:      classCounts,
		BalancedPerClass: minCount,
		HoldoutRows:      len(holdX),
		HoldoutAccuracy:  tr.accuracy(model, holdX, holdY),
		Importances:      tr.permutationImportances(model, holdX, holdY, rng),
	}
	return model, report, nil
}

// encodeClasses orders the observed label classes by source priority so the
// class indices are stable across runs.
func (tr *Trainer) encodeClasses(counts map[records.Source]int) []records.Source {
	classes := make([]records.Source, 0, len(counts))
	for s := range counts {
		classes = append(classes, s)
	}
	sort.Slice(classes, func(i, j int) bool {
		return tr.Priority.Rank(classes[i]) < tr.Priority.Rank(classes[j])
	})
	return classes
}

func (tr *Trainer) accuracy(m *Model, x [][]float64, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i := range x {
		if m.Predict(x[i]) == m.Classes[y[i]] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

// permutationImportances shuffles one feature column at a time over the
// hold-out set and records the accuracy drop.
func (tr *Trainer) permutationImportances(m *Model, x [][]float64, y []int, rng *rand.Rand) []FeatureImportance {
	base := tr.accuracy(m, x, y)
	out := make([]FeatureImportance, 0, len(m.FeatureNames))

	for f := range m.FeatureNames {
		shuffled := make([][]float64, len(x))
		column := make([]float64, len(x))
		for i := range x {
			column[i] = x[i][f]
		}
		rng.Shuffle(len(column), func(i, j int) { column[i], column[j] = column[j], column[i] })
		for i := range x {
			row := append([]float64(nil), x[i]...)
			row[f] = column[i]
			shuffled[i] = row
		}
		drop := base - tr.accuracy(m, shuffled, y)
		if drop < 0 {
			drop = 0
		}
		out = append(out, FeatureImportance{Feature: m.FeatureNames[f], Importance: drop})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

// WriteImportances writes the {feature, importance} diagnostic table as CSV.
func WriteImportances(path string, importances []FeatureImportance) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"feature", "importance"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, fi := range importances {
		if err := w.Write([]string{fi.Feature, strconv.FormatFloat(fi.Importance, 'f', 6, 64)}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
