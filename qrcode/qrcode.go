// Package qrcode encodes and decodes the payload strings printed on the
// physical QR labels. The textual format is fixed: labels already deployed
// in the field must keep decoding.
package qrcode

import (
	"errors"
	"strconv"
	"strings"

	qr "github.com/skip2/go-qrcode"
)

const (
	productPrefix = "product"
	borrowPrefix  = "borrow"
)

var ErrMalformedPayload = errors.New("malformed qr payload")

type Kind string

const (
	KindProduct Kind = "product"
	KindBorrow  Kind = "borrow"
)

// Payload is a decoded QR label. ProductID is set for product labels,
// Number for borrow-slip labels.
type Payload struct {
	Kind      Kind
	ProductID uint64
	Number    string
}

func EncodeProduct(id uint64) string {
	return productPrefix + ":" + strconv.FormatUint(id, 10)
}

func EncodeBorrow(number string) string {
	return borrowPrefix + ":" + number
}

// Decode splits on the first ":" and validates the prefix. Anything that is
// not a well-formed product or borrow payload fails with ErrMalformedPayload.
func Decode(payload string) (Payload, error) {
	prefix, value, ok := strings.Cut(payload, ":")
	if !ok || value == "" {
		return Payload{}, ErrMalformedPayload
	}
	switch prefix {
	case productPrefix:
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil || id == 0 {
			return Payload{}, ErrMalformedPayload
		}
		return Payload{Kind: KindProduct, ProductID: id}, nil
	case borrowPrefix:
		return Payload{Kind: KindBorrow, Number: value}, nil
	default:
		return Payload{}, ErrMalformedPayload
	}
}

// ImagePNG renders a payload string as a QR label image, size pixels square.
func ImagePNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qr.Encode(payload, qr.Medium, size)
}
