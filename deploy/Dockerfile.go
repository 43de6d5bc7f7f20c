FROM golang:1.24-alpine AS builder

WORKDIR /app

# Dependencies
COPY go.mod go.sum ./
RUN go mod download

# Source
COPY . .

# Build
RUN CGO_ENABLED=0 GOOS=linux go build -trimpath -ldflags="-s -w" -o /app/aims-api ./cmd/api

# Runtime
FROM alpine:3.19

RUN apk add --no-cache ca-certificates tzdata wget \
    && adduser -D -H -u 10001 aims

WORKDIR /app

COPY --from=builder /app/aims-api .
COPY --from=builder /app/migrations ./migrations

ENV MIGRATIONS_DIR=/app/migrations \
    API_PORT=3000

USER aims

EXPOSE 3000

HEALTHCHECK --interval=30s --timeout=3s CMD wget -qO- http://127.0.0.1:3000/ready || exit 1

CMD ["./aims-api"]
