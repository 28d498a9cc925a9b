// Package e2e provides end-to-end tests: a corpus is encoded, built into an index and
// queried over HTTP.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/revsearch/internal/models"
)

// E2EDocument is a corpus entry with the phrase that identifies it.
type E2EDocument struct {
	ID      int64
	Summary string
	URL     string
	Phrase  string
}

// QueryTestCase defines a query and the document ID that must appear in the results.
type QueryTestCase struct {
	Query         string
	ExpectedDocID int64
	Description   string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

var topics = []struct {
	phrase  string
	summary string
}{
	{"лесные пожары", "В Красноярском крае лесные пожары охватили тысячи гектаров тайги."},
	{"паводок затопил", "Весенний паводок затопил десятки домов в пригороде Оренбурга."},
	{"ключевую ставку", "Центробанк сохранил ключевую ставку на прежнем уровне."},
	{"курс рубля", "Курс рубля укрепился после публикации данных о торговом балансе."},
	{"запуск ракеты", "Успешный запуск ракеты с космодрома Восточный вывел на орбиту спутники связи."},
	{"чемпионат мира", "Сборная отправилась на чемпионат мира по хоккею."},
	{"выставка импрессионистов", "В Эрмитаже открылась выставка импрессионистов из частных коллекций."},
	{"пробки на дорогах", "Снегопад вызвал многокилометровые пробки на дорогах Москвы."},
	{"вакцина от гриппа", "Минздрав сообщил, что новая вакцина от гриппа доступна детям."},
	{"цены на бензин", "Цены на бензин выросли третью неделю подряд."},
	{"урожай пшеницы", "Аграрии собрали рекордный урожай пшеницы на юге страны."},
	{"землетрясение магнитудой", "Землетрясение магнитудой пять баллов произошло у берегов Камчатки."},
	{"новая линия метро", "В Петербурге заработала новая линия метро с четырьмя станциями."},
	{"утечка данных", "Крупный ритейлер подтвердил, что утечка данных затронула клиентов."},
	{"забастовка шахтеров", "Забастовка шахтеров продолжается вторую неделю в Кузбассе."},
	{"открытие театрального сезона", "Большой театр объявил открытие театрального сезона премьерой оперы."},
	{"школьная реформа", "Школьная реформа введет новые учебные программы."},
	{"нефтяной разлив", "Нефтяной разлив у побережья угрожает колониям птиц."},
	{"теплоснабжение восстановлено", "После аварии на котельной теплоснабжение восстановлено в трех районах."},
	{"электромобили продажи", "Продажи электромобилей удвоились по сравнению с прошлым годом, электромобили продажи растут."},
	{"археологи нашли", "Археологи нашли под Новгородом берестяные грамоты двенадцатого века."},
	{"мост через реку", "Строители завершили мост через реку Лену."},
	{"экспорт зерна", "Экспорт зерна через порты Черного моря достиг максимума."},
	{"эпидемия кори", "Врачи предупреждают, что эпидемия кори охватила несколько регионов."},
	{"полярное сияние", "Жители Мурманска наблюдали яркое полярное сияние."},
}

// BuildCorpus returns the fixed E2E corpus and one query per document.
func BuildCorpus() *Corpus {
	docs := make([]E2EDocument, len(topics))
	cases := make([]QueryTestCase, 0, len(topics))
	for i, t := range topics {
		id := int64(1000 + i)
		docs[i] = E2EDocument{
			ID:      id,
			Summary: t.summary,
			URL:     fmt.Sprintf("https://news.example.com/%d", id),
			Phrase:  t.phrase,
		}
		cases = append(cases, QueryTestCase{
			Query:         t.phrase,
			ExpectedDocID: id,
			Description:   fmt.Sprintf("query %q should return doc %d", t.phrase, id),
		})
	}
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

func containsPhrase(d E2EDocument, phrase string) bool {
	return strings.Contains(strings.ToLower(d.Summary), strings.ToLower(phrase))
}

// ToDocuments converts the corpus to models.Document in corpus order.
func (c *Corpus) ToDocuments() []models.Document {
	out := make([]models.Document, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = models.Document{ID: d.ID, Summary: d.Summary, URL: d.URL}
	}
	return out
}
