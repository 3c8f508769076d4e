// Copyright 2026 cinerecs Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCommand = &cobra.Command{
	Use:   "import <movielens-dir>",
	Short: "Import ratings and movies from a MovieLens 100K directory.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		if batchSize <= 0 {
			return errors.NotValidf("batch size %d", batchSize)
		}
		var since time.Time
		if s, _ := cmd.Flags().GetString("since"); s != "" {
			var err error
			if since, err = dateparse.ParseAny(s); err != nil {
				return errors.Annotatef(err, "failed to parse --since %q", s)
			}
		}

		ratings, items, err := dataset.LoadMovieLens(args[0])
		if err != nil {
			return errors.Annotate(err, "failed to load MovieLens")
		}
		ratings = filterSince(ratings, since)

		e, err := openEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if purge, _ := cmd.Flags().GetBool("purge"); purge {
			if err = e.DataClient.Purge(); err != nil {
				return errors.Annotate(err, "failed to purge data store")
			}
		}
		if err = importBatches(ctx, items, batchSize, "import movies", e.DataClient.BatchInsertItems); err != nil {
			return err
		}
		if err = importBatches(ctx, ratings, batchSize, "import ratings", e.DataClient.BatchInsertRatings); err != nil {
			return err
		}
		log.Logger().Info("import MovieLens",
			zap.Int("n_movies", len(items)),
			zap.Int("n_ratings", len(ratings)))
		return nil
	},
}

func init() {
	rootCommand.AddCommand(importCommand)
	importCommand.Flags().String("since", "", "skip ratings given before this date")
	importCommand.Flags().Int("batch-size", 1000, "number of records inserted per batch")
	importCommand.Flags().Bool("purge", false, "remove existing ratings and movies before import")
}

// filterSince keeps ratings given at or after since. A zero time keeps everything.
func filterSince(ratings []dataset.Rating, since time.Time) []dataset.Rating {
	if since.IsZero() {
		return ratings
	}
	return lo.Filter(ratings, func(rating dataset.Rating, _ int) bool {
		return rating.Timestamp >= since.Unix()
	})
}

func importBatches[T any](ctx context.Context, records []T, batchSize int, description string,
	insert func(context.Context, []T) error) error {
	bar := progressbar.Default(int64(len(records)), description)
	for _, chunk := range lo.Chunk(records, batchSize) {
		if err := insert(ctx, chunk); err != nil {
			return errors.Annotate(err, description)
		}
		if err := bar.Add(len(chunk)); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(bar.Finish())
}
