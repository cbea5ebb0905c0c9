package mongodb

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func bsonKey(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// ToDecimal128 переводит денежную сумму в BSON Decimal128
func ToDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s to decimal128: %w", d, err)
	}
	return out, nil
}

// FromDecimal128 обратное преобразование
func FromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal128 %s to decimal: %w", d, err)
	}
	return out, nil
}
