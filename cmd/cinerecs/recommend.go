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
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/logics"
	"github.com/cinerecs/cinerecs/storage/data"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend [user-id...]",
	Short: "Print recommendations for users.",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("user ids or --all are required")
		}
		userIds, err := parseIds(args)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("n")
		jobs, _ := cmd.Flags().GetInt("jobs")

		e, err := openEngine(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		snapshot, err := e.Load(cmd.Context())
		if err != nil {
			return errors.Annotate(err, "failed to load models")
		}
		if all {
			userIds = snapshot.Ratings.GetUserIndex().GetIds()
		}
		results, err := snapshot.Warmup(cmd.Context(), userIds, n, jobs)
		if err != nil {
			return errors.Trace(err)
		}
		items, err := loadItems(cmd.Context(), e.DataClient)
		if err != nil {
			return err
		}
		var rows [][]string
		for i, userId := range userIds {
			rows = append(rows, scoreRows(strconv.FormatInt(userId, 10), results[i], items)...)
		}
		return renderScores("user", rows)
	},
}

var similarCommand = &cobra.Command{
	Use:   "similar <item-id>",
	Short: "Print movies with similar genres.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemIds, err := parseIds(args)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("n")
		e, err := openEngine(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		snapshot, err := e.Load(cmd.Context())
		if err != nil {
			return errors.Annotate(err, "failed to load models")
		}
		scores, err := snapshot.GetSimilarItems(cmd.Context(), itemIds[0], n)
		if err != nil {
			return errors.Trace(err)
		}
		items, err := loadItems(cmd.Context(), e.DataClient)
		if err != nil {
			return err
		}
		return renderScores("movie", scoreRows(args[0], scores, items))
	},
}

func init() {
	rootCommand.AddCommand(recommendCommand)
	rootCommand.AddCommand(similarCommand)
	recommendCommand.Flags().Bool("all", false, "recommend for every user with ratings")
	recommendCommand.Flags().IntP("n", "n", 10, "number of recommended movies per user")
	recommendCommand.Flags().Int("jobs", runtime.NumCPU(), "number of concurrent jobs")
	similarCommand.Flags().IntP("n", "n", 10, "number of similar movies")
}

func parseIds(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("id %q", arg)
		}
		ids[i] = id
	}
	return ids, nil
}

func loadItems(ctx context.Context, database data.Database) (*dataset.ItemCorpus, error) {
	items, err := database.GetItems(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load movies")
	}
	corpus, err := dataset.NewItemCorpus(items)
	return corpus, errors.Trace(err)
}

// scoreRows formats scores as table rows with movie titles. Unknown movies have empty titles.
func scoreRows(key string, scores []logics.Score, items *dataset.ItemCorpus) [][]string {
	rows := make([][]string, len(scores))
	for i, score := range scores {
		item, _ := items.GetItem(score.ItemId)
		rows[i] = []string{key, strconv.Itoa(i + 1), strconv.FormatInt(score.ItemId, 10), item.Title,
			fmt.Sprintf("%.4f", score.Score)}
	}
	return rows
}

func renderScores(keyName string, rows [][]string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header(keyName, "rank", "item_id", "title", "score")
	if err := table.Bulk(rows); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}
