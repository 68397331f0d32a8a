package main

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"
	"time"

	"github.com/shopspring/decimal"

	"agents-gateway/internal/agent"
	"agents-gateway/internal/api"
	"agents-gateway/sdk/go/agents"
)

func main() {
	store := agent.NewMemoryStore()
	name, city := "Order All", "Boston"
	store.SeedCompanies(agent.Company{ID: "18", Name: &name, City: &city})
	gateway := api.NewServer(":0", agent.NewService(store))

	srv := httptest.NewServer(gateway.Handler())
	defer srv.Close()

	client, err := agents.NewClient(srv.URL, srv.Client())
	if err != nil {
		log.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := client.CreateAgent(ctx, agents.AgentInput{
		Code:        "A001",
		Name:        "Ramesh",
		WorkingArea: "Bangalore",
		Commission:  decimal.RequireFromString("0.15"),
		PhoneNo:     "077-12345678",
		Country:     "India",
	})
	if err != nil {
		log.Fatalf("create agent: %v", err)
	}
	fmt.Printf("created agent %s\n", id)

	if err := client.UpdateCommission(ctx, id, decimal.RequireFromString("0.12")); err != nil {
		log.Fatalf("update commission: %v", err)
	}
	got, err := client.GetAgent(ctx, id)
	if err != nil {
		log.Fatalf("get agent: %v", err)
	}
	fmt.Printf("agent %s (%s) commission=%s\n", got.Code, got.Name, got.Commission)

	companies, err := client.ListCompanies(ctx)
	if err != nil {
		log.Fatalf("list companies: %v", err)
	}
	fmt.Printf("%d companies\n", len(companies))

	if err := client.DeleteAgent(ctx, "NOPE"); err != nil {
		fmt.Printf("delete unknown agent: %v\n", err)
	}
}
