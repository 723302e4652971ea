package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"hospital_id",
			"slot_id",
			"lock_id",
			"date",
			"status",
			"details",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"lock_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"confirmed",
					"checked_in",
					"cancelled",
				},
			},

			"details": bson.M{
				"bsonType": "object",
				"required": []string{"patient_name", "patient_phone", "mode"},
				"properties": bson.M{
					"patient_name": bson.M{
						"bsonType":  "string",
						"minLength": 2,
						"maxLength": 100,
					},
					"patient_phone": bson.M{
						"bsonType": "string",
						"pattern":  `^\+[1-9]\d{6,14}$`,
					},
					"mode": bson.M{
						"bsonType": "string",
						"enum":     []string{"online", "offline"},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
