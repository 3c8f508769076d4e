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

	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRating struct {
	UserId    int64 `bson:"user_id"`
	ItemId    int64 `bson:"item_id"`
	Rating    int   `bson:"rating"`
	Timestamp int64 `bson:"timestamp"`
}

type mongoItem struct {
	ItemId int64    `bson:"_id"`
	Title  string   `bson:"title"`
	Genres []string `bson:"genres"`
}

// MongoDB is the data storage based on MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	// create collections
	for _, name := range []string{db.RatingsTable(), db.ItemsTable()} {
		if !lo.Contains(collections, name) {
			if err = d.CreateCollection(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
	}
	// create index
	_, err = d.Collection(db.RatingsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "item_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Trace(err)
}

func (db *MongoDB) Ping() error {
	return errors.Trace(db.client.Ping(context.Background(), nil))
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return errors.Trace(db.client.Disconnect(context.Background()))
}

// Purge deletes all documents.
func (db *MongoDB) Purge() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	for _, name := range []string{db.RatingsTable(), db.ItemsTable()} {
		if _, err := d.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.RatingsTable())
	var models []mongo.WriteModel
	for _, rating := range ratings {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"user_id": rating.UserId, "item_id": rating.ItemId}).
			SetUpdate(bson.M{"$set": bson.M{"rating": rating.Rating, "timestamp": rating.Timestamp}}))
	}
	// ordered, so the last rating of a pair wins
	_, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertItems(ctx context.Context, items []dataset.Item) error {
	if len(items) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	var models []mongo.WriteModel
	for _, item := range items {
		genres := item.Genres
		if genres == nil {
			genres = []string{}
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": item.ItemId}).
			SetUpdate(bson.M{"$set": bson.M{"title": item.Title, "genres": genres}}))
	}
	_, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return errors.Trace(err)
}

func (db *MongoDB) findRatings(ctx context.Context, filter bson.M) ([]dataset.Rating, error) {
	c := db.client.Database(db.dbName).Collection(db.RatingsTable())
	opt := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}, {Key: "item_id", Value: 1}})
	r, err := c.Find(ctx, filter, opt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	ratings := make([]dataset.Rating, 0)
	for r.Next(ctx) {
		var doc mongoRating
		if err = r.Decode(&doc); err != nil {
			return nil, errors.Trace(err)
		}
		ratings = append(ratings, dataset.Rating{UserId: doc.UserId, ItemId: doc.ItemId, Rating: doc.Rating, Timestamp: doc.Timestamp})
	}
	return ratings, errors.Trace(r.Err())
}

func (db *MongoDB) GetRatings(ctx context.Context) ([]dataset.Rating, error) {
	return db.findRatings(ctx, bson.M{})
}

func (db *MongoDB) GetUserRatings(ctx context.Context, userId int64) ([]dataset.Rating, error) {
	return db.findRatings(ctx, bson.M{"user_id": userId})
}

func (db *MongoDB) GetItems(ctx context.Context) ([]dataset.Item, error) {
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	items := make([]dataset.Item, 0)
	for r.Next(ctx) {
		var doc mongoItem
		if err = r.Decode(&doc); err != nil {
			return nil, errors.Trace(err)
		}
		items = append(items, dataset.Item{ItemId: doc.ItemId, Title: doc.Title, Genres: doc.Genres})
	}
	return items, errors.Trace(r.Err())
}

func (db *MongoDB) GetItem(ctx context.Context, itemId int64) (dataset.Item, error) {
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	var doc mongoItem
	err := c.FindOne(ctx, bson.M{"_id": itemId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return dataset.Item{}, errors.NotFoundf("item %d", itemId)
	} else if err != nil {
		return dataset.Item{}, errors.Trace(err)
	}
	return dataset.Item{ItemId: doc.ItemId, Title: doc.Title, Genres: doc.Genres}, nil
}
