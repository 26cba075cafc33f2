package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomReferenceSuffix returns a random alphanumeric string for building
// unique references
func RandomReferenceSuffix(length int) string {
	result := make([]byte, length)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(referenceCharset))))
		result[i] = referenceCharset[n.Int64()]
	}
	return string(result)
}

// GenerateTransactionReference creates a unique transaction reference
func GenerateTransactionReference(prefix string) string {
	timestamp := time.Now().Format("20060102150405")
	return strings.ToUpper(fmt.Sprintf("%s_%s_%s", prefix, timestamp, RandomReferenceSuffix(8)))
}
