// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client_test

import (
	"context"
	"fmt"
	"log"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/client"
)

func ExampleConversation() {
	ctx := context.Background()

	card, err := client.NewCardResolver("http://localhost:10000", nil).Resolve(ctx)
	if err != nil {
		log.Fatal(err)
	}
	c, err := client.NewClientFromCard(card)
	if err != nil {
		log.Fatal(err)
	}

	conv := client.NewConversation(c)
	for _, text := range []string{"What is the weather?", "Seoul"} {
		out, err := conv.Send(ctx, text)
		if err != nil {
			log.Fatal(err)
		}
		for _, note := range out.Notes {
			fmt.Println("...", note)
		}
		fmt.Printf("[%s] %s\n", out.State, out.Response)
	}
}

func ExampleReducer() {
	r := client.NewReducer()
	params := &a2a.MessageSendParams{Message: a2a.NewUserTextMessage("Weather in Busan", "", "")}
	stream, err := client.NewClient("http://localhost:10000/").StreamMessage(context.Background(), params)
	if err != nil {
		r.ApplyError(err)
	} else {
		defer stream.Close()
		for ev, err := range stream.All() {
			if err != nil {
				r.ApplyError(err)
				break
			}
			r.Apply(ev)
		}
	}
	out := r.Finish()
	if out.Diagnostic != nil {
		fmt.Println("no answer:", out.Diagnostic)
	}
}
