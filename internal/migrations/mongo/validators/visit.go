package validators

import "go.mongodb.org/mongo-driver/bson"

var TokenCounterValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"hospital_id", "day_key", "value"},
		"properties": bson.M{
			"day_key": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},
			"value": bson.M{
				"bsonType": bson.A{"int", "long"},
				"minimum":  1,
			},
		},
	},
}

var VisitValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"hospital_id",
			"patient_id",
			"token",
			"day_key",
			"source",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"token": bson.M{
				"bsonType": bson.A{"int", "long"},
				"minimum":  1,
			},

			"day_key": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"source": bson.M{
				"bsonType": "string",
				"enum":     []string{"appointment", "walk_in"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"waiting"},
			},
		},
	},
}
