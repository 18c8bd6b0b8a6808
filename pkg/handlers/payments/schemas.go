package payments

import "github.com/chris/pi-settlement/pkg/handlers/httpio"

const amountSchema = `{"type": ["string", "number"], "pattern": "^[0-9]+(\\.[0-9]+)?$", "minimum": 0}`

var completePaymentSchema = httpio.MustSchema(`{
	"type": "object",
	"required": ["paymentId", "txid"],
	"properties": {
		"paymentId": {"type": "string", "minLength": 1},
		"txid": {"type": "string", "minLength": 1},
		"accessToken": {"type": "string"},
		"storeId": {"type": "string"},
		"planType": {"type": "string"},
		"customer": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string"},
				"email": {"type": "string"},
				"phone": {"type": "string"},
				"address": {"type": "string"}
			}
		},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["product_id", "name", "quantity", "price"],
				"properties": {
					"product_id": {"type": "string"},
					"name": {"type": "string"},
					"quantity": {"type": "integer", "minimum": 1},
					"price": ` + amountSchema + `
				}
			}
		}
	}
}`)

var verifyTransactionSchema = httpio.MustSchema(`{
	"type": "object",
	"required": ["transaction_hash"],
	"properties": {
		"transaction_hash": {"type": "string", "minLength": 1},
		"order_id": {"type": "string"},
		"expected_amount": ` + amountSchema + `,
		"expected_recipient": {"type": "string"},
		"expected_memo": {"type": "string"},
		"auto_release": {"type": "boolean"}
	}
}`)

var approvePaymentSchema = httpio.MustSchema(`{
	"type": "object",
	"required": ["paymentId"],
	"properties": {
		"paymentId": {"type": "string", "minLength": 1}
	}
}`)
