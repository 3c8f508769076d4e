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
	"fmt"
	"os"
	"sort"

	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/engine"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train models on the data store and save them to the blob store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		model, space, err := e.Train(cmd.Context())
		if err != nil {
			return errors.Annotate(err, "failed to train models")
		}
		log.Logger().Info("train models",
			zap.Int("n_factors", model.NFactors()),
			zap.Int("n_items", space.Len()),
			zap.Int("n_terms", len(space.Vocabulary)))
		return nil
	},
}

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Search hyper-parameters of the latent factor model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if n, _ := cmd.Flags().GetInt("n-trials"); cmd.Flags().Changed("n-trials") {
			e.Config.Tuning.NTrials = n
		}
		ratings, _, err := e.LoadCorpora(cmd.Context())
		if err != nil {
			return errors.Trace(err)
		}
		result, err := engine.Tune(cmd.Context(), ratings, e.Config)
		if err != nil {
			return errors.Annotate(err, "failed to tune models")
		}

		rows := make([][]string, 0, len(result.Params)+2)
		for name, value := range result.Params {
			rows = append(rows, []string{string(name), fmt.Sprint(value)})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
		rows = append(rows,
			[]string{"RMSE", fmt.Sprintf("%.4f", result.Score.RMSE)},
			[]string{"MAE", fmt.Sprintf("%.4f", result.Score.MAE)})
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("parameter", "value")
		if err = table.Bulk(rows); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(table.Render())
	},
}

func init() {
	rootCommand.AddCommand(trainCommand)
	rootCommand.AddCommand(tuneCommand)
	tuneCommand.Flags().Int("n-trials", 10, "number of trials")
}
