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

package model

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/cinerecs/cinerecs/base/log"
	"go.uber.org/zap"
)

// ParamName is the name of a hyper-parameter.
type ParamName string

const (
	Lr          ParamName = "Lr"          // learning rate
	Reg         ParamName = "Reg"         // regularization strength
	NEpochs     ParamName = "NEpochs"     // number of epochs
	NFactors    ParamName = "NFactors"    // number of factors
	RandomState ParamName = "RandomState" // random state (seed)
	InitMean    ParamName = "InitMean"    // mean of gaussian initial parameter
	InitStdDev  ParamName = "InitStdDev"  // standard deviation of gaussian initial parameter
)

// Params holds hyper-parameters. Missing entries fall back to the defaults of each model.
type Params map[ParamName]interface{}

func (parameters Params) Copy() Params {
	newParams := make(Params, len(parameters))
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int64:
			return int(val)
		default:
			log.Logger().Error("unexpected parameter type",
				zap.String("name", string(name)), zap.Stringer("type", reflect.TypeOf(val)))
		}
	}
	return _default
}

func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("unexpected parameter type",
				zap.String("name", string(name)), zap.Stringer("type", reflect.TypeOf(val)))
		}
	}
	return _default
}

func (parameters Params) GetFloat32(name ParamName, _default float32) float32 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float32:
			return val
		case float64:
			return float32(val)
		case int:
			return float32(val)
		default:
			log.Logger().Error("unexpected parameter type",
				zap.String("name", string(name)), zap.Stringer("type", reflect.TypeOf(val)))
		}
	}
	return _default
}

// Overwrite merges params into a copy of parameters.
func (parameters Params) Overwrite(params Params) Params {
	merged := parameters.Copy()
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		log.Logger().Error("failed to marshal parameters", zap.Error(err))
	}
	return string(b)
}

// Names returns parameter names in lexical order.
func (parameters Params) Names() []ParamName {
	names := make([]ParamName, 0, len(parameters))
	for name := range parameters {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ZapFields renders parameters as structured log fields.
func (parameters Params) ZapFields() []zap.Field {
	fields := make([]zap.Field, 0, len(parameters))
	for _, name := range parameters.Names() {
		fields = append(fields, zap.Any(string(name), parameters[name]))
	}
	return fields
}
