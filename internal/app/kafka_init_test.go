package app

import (
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"
)

func kafkaTestLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	return logger.WithField("component", "kafka-init-test")
}

func TestSplitBrokers(t *testing.T) {
	cases := []struct {
		name    string
		brokers string
		want    []string
	}{
		{name: "empty", brokers: "", want: nil},
		{name: "single", brokers: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and empties", brokers: " a:9092, ,b:9092,", want: []string{"a:9092", "b:9092"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitBrokers(tc.brokers)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("splitBrokers(%q) = %v, want %v", tc.brokers, got, tc.want)
			}
		})
	}
}

func TestInitKafkaProducerWithoutBrokers(t *testing.T) {
	producer, err := initKafkaProducer("  ,", kafkaTestLogger())
	if err != nil {
		t.Fatalf("expected no error for empty brokers, got %v", err)
	}
	if producer != nil {
		t.Fatal("expected nil producer for empty brokers")
	}
}

func TestInitKafkaProducerUnreachableBrokers(t *testing.T) {
	// Брокеры не существуют, конструктор должен вернуть ошибку.
	producer, err := initKafkaProducer("broker1:9999,broker2:9999", kafkaTestLogger())
	if err == nil {
		t.Fatal("expected error for unreachable brokers")
	}
	if producer != nil {
		t.Fatal("expected nil producer on error")
	}
}

func TestCloseKafkaNilProducer(t *testing.T) {
	// Не должно паниковать.
	closeKafka(nil, kafkaTestLogger())
}
