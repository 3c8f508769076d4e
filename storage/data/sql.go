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
	"database/sql"

	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLRating is the row of the ratings table.
type SQLRating struct {
	UserId    int64 `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	ItemId    int64 `gorm:"column:item_id;primaryKey;autoIncrement:false"`
	Rating    int   `gorm:"column:rating;not null"`
	Timestamp int64 `gorm:"column:time_stamp;not null"`
}

// SQLItem is the row of the items table.
type SQLItem struct {
	ItemId int64    `gorm:"column:item_id;primaryKey;autoIncrement:false"`
	Title  string   `gorm:"column:title;type:text;not null"`
	Genres []string `gorm:"column:genres;type:text;not null;serializer:json"`
}

func toSQLRating(rating dataset.Rating, _ int) SQLRating {
	return SQLRating{UserId: rating.UserId, ItemId: rating.ItemId, Rating: rating.Rating, Timestamp: rating.Timestamp}
}

func fromSQLRating(row SQLRating, _ int) dataset.Rating {
	return dataset.Rating{UserId: row.UserId, ItemId: row.ItemId, Rating: row.Rating, Timestamp: row.Timestamp}
}

func toSQLItem(item dataset.Item, _ int) SQLItem {
	genres := item.Genres
	if genres == nil {
		genres = []string{}
	}
	return SQLItem{ItemId: item.ItemId, Title: item.Title, Genres: genres}
}

func fromSQLItem(row SQLItem, _ int) dataset.Item {
	return dataset.Item{ItemId: row.ItemId, Title: row.Title, Genres: row.Genres}
}

// SQLDatabase stores ratings and items in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init creates tables if they do not exist.
func (d *SQLDatabase) Init() error {
	if err := d.gormDB.Table(d.RatingsTable()).AutoMigrate(&SQLRating{}); err != nil {
		return errors.Trace(err)
	}
	if err := d.gormDB.Table(d.ItemsTable()).AutoMigrate(&SQLItem{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return errors.Trace(d.client.Ping())
}

func (d *SQLDatabase) Close() error {
	return errors.Trace(d.client.Close())
}

// Purge deletes all rows.
func (d *SQLDatabase) Purge() error {
	for _, table := range []string{d.RatingsTable(), d.ItemsTable()} {
		if d.gormDB.Migrator().HasTable(table) {
			if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
				return errors.Trace(err)
			}
		}
	}
	return nil
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	// the last rating of a pair wins, a single statement must not touch a row twice
	rows := lo.UniqBy(lo.Reverse(lo.Map(ratings, toSQLRating)), func(row SQLRating) lo.Tuple2[int64, int64] {
		return lo.Tuple2[int64, int64]{A: row.UserId, B: row.ItemId}
	})
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "time_stamp"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertItems(ctx context.Context, items []dataset.Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := lo.UniqBy(lo.Reverse(lo.Map(items, toSQLItem)), func(row SQLItem) int64 {
		return row.ItemId
	})
	err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "genres"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetRatings(ctx context.Context) ([]dataset.Rating, error) {
	var rows []SQLRating
	if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Order("user_id, item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, fromSQLRating), nil
}

func (d *SQLDatabase) GetUserRatings(ctx context.Context, userId int64) ([]dataset.Rating, error) {
	var rows []SQLRating
	if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Where("user_id = ?", userId).Order("item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, fromSQLRating), nil
}

func (d *SQLDatabase) GetItems(ctx context.Context) ([]dataset.Item, error) {
	var rows []SQLItem
	if err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).Order("item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, fromSQLItem), nil
}

func (d *SQLDatabase) GetItem(ctx context.Context, itemId int64) (dataset.Item, error) {
	var rows []SQLItem
	if err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).
		Where("item_id = ?", itemId).Limit(1).Find(&rows).Error; err != nil {
		return dataset.Item{}, errors.Trace(err)
	}
	if len(rows) == 0 {
		return dataset.Item{}, errors.NotFoundf("item %d", itemId)
	}
	return fromSQLItem(rows[0], 0), nil
}
