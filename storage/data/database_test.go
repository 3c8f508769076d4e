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

package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cinerecs/cinerecs/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) SetupTest() {
	suite.NoError(suite.Database.Init())
	suite.NoError(suite.Database.Purge())
}

func (suite *baseTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
}

func (suite *baseTestSuite) TestRatings() {
	ctx := context.Background()
	suite.NoError(suite.Database.Ping())
	err := suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 2, ItemId: 12, Rating: 5, Timestamp: 100},
		{UserId: 1, ItemId: 11, Rating: 2, Timestamp: 101},
		{UserId: 1, ItemId: 10, Rating: 5, Timestamp: 102},
		{UserId: 2, ItemId: 10, Rating: 4, Timestamp: 103},
	})
	suite.NoError(err)
	ratings, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Equal([]dataset.Rating{
		{UserId: 1, ItemId: 10, Rating: 5, Timestamp: 102},
		{UserId: 1, ItemId: 11, Rating: 2, Timestamp: 101},
		{UserId: 2, ItemId: 10, Rating: 4, Timestamp: 103},
		{UserId: 2, ItemId: 12, Rating: 5, Timestamp: 100},
	}, ratings)

	// overwrite a rating, the last one of a batch wins
	err = suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 1, ItemId: 11, Rating: 3, Timestamp: 200},
		{UserId: 1, ItemId: 11, Rating: 4, Timestamp: 201},
		{UserId: 1, ItemId: 13, Rating: 1, Timestamp: 202},
	})
	suite.NoError(err)
	ratings, err = suite.Database.GetUserRatings(ctx, 1)
	suite.NoError(err)
	suite.Equal([]dataset.Rating{
		{UserId: 1, ItemId: 10, Rating: 5, Timestamp: 102},
		{UserId: 1, ItemId: 11, Rating: 4, Timestamp: 201},
		{UserId: 1, ItemId: 13, Rating: 1, Timestamp: 202},
	}, ratings)

	// unknown user
	ratings, err = suite.Database.GetUserRatings(ctx, 3)
	suite.NoError(err)
	suite.Empty(ratings)

	// empty batch
	suite.NoError(suite.Database.BatchInsertRatings(ctx, nil))
}

func (suite *baseTestSuite) TestItems() {
	ctx := context.Background()
	err := suite.Database.BatchInsertItems(ctx, []dataset.Item{
		{ItemId: 12, Title: "Heat", Genres: []string{"action", "drama"}},
		{ItemId: 10, Title: "GoldenEye", Genres: []string{"action"}},
		{ItemId: 11, Title: "Casino", Genres: []string{"drama"}},
	})
	suite.NoError(err)
	items, err := suite.Database.GetItems(ctx)
	suite.NoError(err)
	suite.Equal([]dataset.Item{
		{ItemId: 10, Title: "GoldenEye", Genres: []string{"action"}},
		{ItemId: 11, Title: "Casino", Genres: []string{"drama"}},
		{ItemId: 12, Title: "Heat", Genres: []string{"action", "drama"}},
	}, items)

	// overwrite an item
	err = suite.Database.BatchInsertItems(ctx, []dataset.Item{
		{ItemId: 11, Title: "Casino (1995)", Genres: []string{"crime", "drama"}},
		{ItemId: 13},
	})
	suite.NoError(err)
	item, err := suite.Database.GetItem(ctx, 11)
	suite.NoError(err)
	suite.Equal(dataset.Item{ItemId: 11, Title: "Casino (1995)", Genres: []string{"crime", "drama"}}, item)
	item, err = suite.Database.GetItem(ctx, 13)
	suite.NoError(err)
	suite.Empty(item.Genres)

	_, err = suite.Database.GetItem(ctx, 99)
	suite.True(errors.Is(err, errors.NotFound))
}

func (suite *baseTestSuite) TestPurge() {
	ctx := context.Background()
	suite.NoError(suite.Database.BatchInsertRatings(ctx, []dataset.Rating{{UserId: 1, ItemId: 1, Rating: 3}}))
	suite.NoError(suite.Database.BatchInsertItems(ctx, []dataset.Item{{ItemId: 1, Title: "Toy Story"}}))
	suite.NoError(suite.Database.Purge())
	ratings, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Empty(ratings)
	items, err := suite.Database.GetItems(ctx)
	suite.NoError(err)
	suite.Empty(items)
}

type SQLiteTestSuite struct {
	baseTestSuite
}

func (suite *SQLiteTestSuite) SetupSuite() {
	var err error
	path := filepath.Join(suite.T().TempDir(), "sqlite.db")
	suite.Database, err = Open("sqlite://"+path, "cine_")
	suite.NoError(err)
}

func TestSQLite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

type envTestSuite struct {
	baseTestSuite
	env string
}

func (suite *envTestSuite) SetupSuite() {
	uri := os.Getenv(suite.env)
	if uri == "" {
		suite.T().Skipf("%s is not set", suite.env)
	}
	var err error
	suite.Database, err = Open(uri, "cine_")
	suite.NoError(err)
}

func (suite *envTestSuite) TearDownSuite() {
	if suite.Database != nil {
		suite.baseTestSuite.TearDownSuite()
	}
}

func TestMySQL(t *testing.T) {
	suite.Run(t, &envTestSuite{env: "MYSQL_URI"})
}

func TestPostgres(t *testing.T) {
	suite.Run(t, &envTestSuite{env: "POSTGRES_URI"})
}

func TestMongoDB(t *testing.T) {
	suite.Run(t, &envTestSuite{env: "MONGO_URI"})
}

func TestNoDatabase(t *testing.T) {
	var database Database = NoDatabase{}
	ctx := context.Background()
	for _, err := range []error{
		database.Init(),
		database.Ping(),
		database.Close(),
		database.Purge(),
		database.BatchInsertRatings(ctx, nil),
		database.BatchInsertItems(ctx, nil),
	} {
		if !errors.Is(err, ErrNoDatabase) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	_, err := database.GetRatings(ctx)
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatal(err)
	}
	_, err = database.GetItem(ctx, 1)
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatal(err)
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("cassandra://localhost", "")
	if !errors.Is(err, errors.NotSupported) {
		t.Fatal(err)
	}
}
