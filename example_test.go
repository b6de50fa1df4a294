package rapport_test

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/stub"
)

func Example() {
	// A development endpoint standing in for the real backend.
	backend, _ := stub.New(stub.WithResponder(func(_ context.Context, message string) (string, error) {
		return "我曾經主導一個履歷檢索系統的重構。", nil
	}))
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	chat, err := rapport.New(rapport.WithBaseURL(srv.URL))
	if err != nil {
		panic(err)
	}
	defer chat.Close()

	snap, err := chat.Ask(context.Background(), "請介紹一個你最有成就感的專案？")
	if err != nil {
		panic(err)
	}

	for _, turn := range snap.Transcript.Turns() {
		fmt.Printf("%s: %s\n", turn.Role.Label(), turn.Content)
	}
	// Output:
	// 面試官: 請介紹一個你最有成就感的專案？
	// 許皓翔: 我曾經主導一個履歷檢索系統的重構。
}
