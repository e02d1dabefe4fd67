package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// 6桁のワンタイムコード
type CodeGenerator interface {
	NewCode() (string, error)
}

type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

// 000000〜999999を一様に。先頭0も保持
func (RandomCodeGenerator) NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
