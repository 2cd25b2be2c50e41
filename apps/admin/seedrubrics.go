package main

import (
	"context"
	"fmt"

	"github.com/mtokoni/tathmini/core/judging"
)

// seedRubrics loads the default rubric criteria; existing ones are updated in place.
func (cli *commandLine) seedRubrics() error {
	if err := cli.judgingSvc.SeedCriteria(context.Background(), judging.StockCriteria); err != nil {
		return err
	}
	fmt.Printf("seeded %d rubric criteria\n", len(judging.StockCriteria))
	return nil
}
